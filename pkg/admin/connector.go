package admin

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/aws_msk_iam_v2"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"
	log "github.com/sirupsen/logrus"
)

// SASLMechanism is a SASL mechanism supported for broker authentication.
type SASLMechanism string

const (
	SASLMechanismAWSMSKIAM   SASLMechanism = "aws-msk-iam"
	SASLMechanismPlain       SASLMechanism = "plain"
	SASLMechanismScramSHA256 SASLMechanism = "scram-sha-256"
	SASLMechanismScramSHA512 SASLMechanism = "scram-sha-512"

	defaultConnTimeout = 10 * time.Second

	// Topology is read once per run
	metadataTTL = 10 * time.Minute
)

// ConnectorConfig is the connection configuration for the cluster being balanced.
type ConnectorConfig struct {
	BrokerAddr  string
	ConnTimeout time.Duration
	TLS         TLSConfig
	SASL        SASLConfig
}

// TLSConfig holds the paths of the client key pair and CA bundle.
type TLSConfig struct {
	Enabled    bool
	CertPath   string
	KeyPath    string
	CACertPath string
	ServerName string
	SkipVerify bool
}

// SASLConfig holds already-resolved SASL credentials.
type SASLConfig struct {
	Enabled   bool
	Mechanism SASLMechanism
	Username  string
	Password  string
}

// Connector holds the kafka-go dialer and client used for metadata and config reads.
type Connector struct {
	Config      ConnectorConfig
	Dialer      *kafka.Dialer
	KafkaClient *kafka.Client
}

// NewConnector builds the dialer and client for the argument config. It doesn't open any
// connections.
func NewConnector(config ConnectorConfig) (*Connector, error) {
	timeout := config.ConnTimeout
	if timeout <= 0 {
		timeout = defaultConnTimeout
	}

	mechanism, err := newSASLMechanism(config.SASL)
	if err != nil {
		return nil, err
	}
	tlsConfig, err := newTLSConfig(config.TLS)
	if err != nil {
		return nil, err
	}

	dialer := &kafka.Dialer{
		SASLMechanism: mechanism,
		Timeout:       timeout,
		TLS:           tlsConfig,
	}

	log.Debugf(
		"Using cluster address %s (tls=%v, sasl=%v)",
		config.BrokerAddr,
		config.TLS.Enabled,
		config.SASL.Enabled,
	)
	return &Connector{
		Config: config,
		Dialer: dialer,
		KafkaClient: &kafka.Client{
			Addr:    kafka.TCP(config.BrokerAddr),
			Timeout: timeout,
			Transport: &kafka.Transport{
				Dial:        dialer.DialFunc,
				DialTimeout: timeout,
				SASL:        mechanism,
				TLS:         tlsConfig,
				MetadataTTL: metadataTTL,
			},
		},
	}, nil
}

// newSASLMechanism returns nil if SASL is disabled.
func newSASLMechanism(config SASLConfig) (sasl.Mechanism, error) {
	if !config.Enabled {
		return nil, nil
	}

	switch config.Mechanism {
	case SASLMechanismAWSMSKIAM:
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
		if err != nil {
			return nil, err
		}
		return aws_msk_iam_v2.NewMechanism(awsCfg), nil
	case SASLMechanismPlain:
		return plain.Mechanism{
			Username: config.Username,
			Password: config.Password,
		}, nil
	case SASLMechanismScramSHA256:
		return scram.Mechanism(scram.SHA256, config.Username, config.Password)
	case SASLMechanismScramSHA512:
		return scram.Mechanism(scram.SHA512, config.Username, config.Password)
	default:
		return nil, fmt.Errorf("Unrecognized SASL mechanism: %s", config.Mechanism)
	}
}

// newTLSConfig returns nil if TLS is disabled.
func newTLSConfig(config TLSConfig) (*tls.Config, error) {
	if !config.Enabled {
		return nil, nil
	}

	tlsConfig := &tls.Config{
		InsecureSkipVerify: config.SkipVerify,
		ServerName:         config.ServerName,
	}

	if config.CertPath != "" && config.KeyPath != "" {
		log.Debugf("Loading client key pair from %s and %s", config.CertPath, config.KeyPath)
		cert, err := tls.LoadX509KeyPair(config.CertPath, config.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("Could not load client key pair: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	if config.CACertPath != "" {
		log.Debugf("Loading CA bundle from %s", config.CACertPath)
		contents, err := os.ReadFile(config.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("Could not read CA bundle: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(contents) {
			return nil, fmt.Errorf("No CA certs found in %s", config.CACertPath)
		}
		tlsConfig.RootCAs = pool
	}

	return tlsConfig, nil
}

// SASLNameToMechanism converts the argument SASL mechanism name string to a valid instance of
// the SASLMechanism enum.
func SASLNameToMechanism(name string) (SASLMechanism, error) {
	normalizedName := strings.ReplaceAll(strings.ToLower(name), "_", "-")
	mechanism := SASLMechanism(normalizedName)

	switch mechanism {
	case SASLMechanismAWSMSKIAM,
		SASLMechanismPlain,
		SASLMechanismScramSHA256,
		SASLMechanismScramSHA512:
		return mechanism, nil
	default:
		return mechanism, fmt.Errorf(
			"SASL mechanism '%s' is not valid; choices are AWS-MSK-IAM, PLAIN, SCRAM-SHA-256, and SCRAM-SHA-512",
			mechanism,
		)
	}
}
