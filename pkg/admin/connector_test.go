package admin

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConnectorDefaultTimeout(t *testing.T) {
	originalTimeout := kafka.DefaultDialer.Timeout
	t.Cleanup(func() { kafka.DefaultDialer.Timeout = originalTimeout })

	connector, err := NewConnector(
		ConnectorConfig{
			BrokerAddr: "localhost:9092",
		},
	)
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, connector.Dialer.Timeout)
	transport, ok := connector.KafkaClient.Transport.(*kafka.Transport)
	require.True(t, ok)
	assert.Equal(t, 10*time.Second, transport.DialTimeout)
	assert.Equal(t, 10*time.Second, connector.KafkaClient.Timeout)
}

func TestNewConnectorCustomTimeout(t *testing.T) {
	customTimeout := 3 * time.Second

	connector, err := NewConnector(
		ConnectorConfig{
			BrokerAddr:  "localhost:9092",
			ConnTimeout: customTimeout,
			TLS: TLSConfig{
				Enabled:    true,
				SkipVerify: true,
			},
		},
	)
	require.NoError(t, err)

	assert.Equal(t, customTimeout, connector.Dialer.Timeout)
	assert.NotNil(t, connector.Dialer.TLS)
	transport, ok := connector.KafkaClient.Transport.(*kafka.Transport)
	require.True(t, ok)
	assert.Equal(t, customTimeout, transport.DialTimeout)
	assert.Equal(t, customTimeout, connector.KafkaClient.Timeout)
}

func TestConnectorDialerTimeoutHappyPath(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })

	acceptErrCh := make(chan error)
	go func() {
		defer close(acceptErrCh)
		conn, err := listener.Accept()
		if err != nil {
			acceptErrCh <- err
			return
		}
		if err := conn.Close(); err != nil {
			acceptErrCh <- err
		}
	}()

	connector, err := NewConnector(
		ConnectorConfig{
			BrokerAddr:  listener.Addr().String(),
			ConnTimeout: 100 * time.Millisecond,
		},
	)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(t.Context(), time.Second)
	defer cancel()

	conn, err := connector.Dialer.DialContext(ctx, "tcp", listener.Addr().String())
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	select {
	case err, ok := <-acceptErrCh:
		if ok {
			require.NoError(t, err)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for listener accept")
	}
}

func TestConnectorDialerTimeoutUnhappyPath(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })

	connector, err := NewConnector(
		ConnectorConfig{
			BrokerAddr:  listener.Addr().String(),
			ConnTimeout: time.Nanosecond,
		},
	)
	require.NoError(t, err)

	_, err = connector.Dialer.DialContext(t.Context(), "tcp", listener.Addr().String())
	require.Error(t, err)

	var netErr net.Error
	if errors.As(err, &netErr) {
		require.True(t, netErr.Timeout(), "expected timeout error, got: %v", err)
		return
	}

	require.True(t, errors.Is(err, context.DeadlineExceeded), "expected deadline exceeded, got: %v", err)
}

func TestSASLNameToMechanism(t *testing.T) {
	mechanism, err := SASLNameToMechanism("SCRAM_SHA_512")
	require.NoError(t, err)
	assert.Equal(t, SASLMechanismScramSHA512, mechanism)

	mechanism, err = SASLNameToMechanism("aws-msk-iam")
	require.NoError(t, err)
	assert.Equal(t, SASLMechanismAWSMSKIAM, mechanism)

	_, err = SASLNameToMechanism("kerberos")
	assert.Error(t, err)
}

func TestNewConnectorSASL(t *testing.T) {
	connector, err := NewConnector(
		ConnectorConfig{
			BrokerAddr: "localhost:9092",
			SASL: SASLConfig{
				Enabled:   true,
				Mechanism: SASLMechanismPlain,
				Username:  "user",
				Password:  "pass",
			},
		},
	)
	require.NoError(t, err)
	assert.NotNil(t, connector.Dialer.SASLMechanism)
	assert.Nil(t, connector.Dialer.TLS)

	_, err = NewConnector(
		ConnectorConfig{
			BrokerAddr: "localhost:9092",
			SASL: SASLConfig{
				Enabled:   true,
				Mechanism: SASLMechanism("kerberos"),
			},
		},
	)
	assert.Error(t, err)
}

func TestNewTLSConfig(t *testing.T) {
	tlsConfig, err := newTLSConfig(TLSConfig{CACertPath: "ignored.pem"})
	require.NoError(t, err)
	assert.Nil(t, tlsConfig)

	tlsConfig, err = newTLSConfig(TLSConfig{Enabled: true, ServerName: "kafka.internal"})
	require.NoError(t, err)
	assert.Equal(t, "kafka.internal", tlsConfig.ServerName)
	assert.Nil(t, tlsConfig.RootCAs)
	assert.Empty(t, tlsConfig.Certificates)

	_, err = newTLSConfig(
		TLSConfig{
			Enabled:    true,
			CACertPath: filepath.Join(t.TempDir(), "missing.pem"),
		},
	)
	assert.Error(t, err)

	notPEM := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(t, os.WriteFile(notPEM, []byte("not a certificate"), 0644))
	_, err = newTLSConfig(TLSConfig{Enabled: true, CACertPath: notPEM})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No CA certs found")
}
