package admin

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/segmentio/balancectl/pkg/util"
)

// FormatBrokers creates a pretty table from a list of brokers.
func FormatBrokers(brokers []BrokerInfo, controllerID int) string {
	buf := &bytes.Buffer{}

	headers := []any{
		"ID",
		"Host",
		"Port",
		"Rack",
		"Log Dirs",
	}

	table := newTable(buf, len(headers))
	table.Header(headers...)

	for _, broker := range brokers {
		idStr := fmt.Sprintf("%d", broker.ID)
		if broker.ID == controllerID {
			idStr = fmt.Sprintf("%s (controller)", idStr)
			if util.InTerminal() {
				idStr = color.New(color.FgCyan).Sprint(idStr)
			}
		}

		table.Append(
			[]string{
				idStr,
				broker.Host,
				fmt.Sprintf("%d", broker.Port),
				broker.Rack,
				strings.Join(broker.Logdirs(), "\n"),
			},
		)
	}

	table.Render()
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}

// FormatBrokersPerRack creates a pretty table that shows the number of brokers per rack.
func FormatBrokersPerRack(brokers []BrokerInfo) string {
	buf := &bytes.Buffer{}

	table := newTable(buf, 2)
	table.Header("Rack", "Num Brokers")

	brokersPerRack := BrokersPerRack(brokers)
	for _, rack := range DistinctRacks(brokers) {
		table.Append(
			[]string{
				rack,
				fmt.Sprintf("%d", len(brokersPerRack[rack])),
			},
		)
	}

	table.Render()
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}

// FormatTopology creates a pretty table summarizing the replicas and leaders hosted by each
// broker in the topology. Offline brokers are highlighted.
func FormatTopology(topology ClusterTopology) string {
	buf := &bytes.Buffer{}

	table := newTable(buf, 4)
	table.Header("Broker", "Rack", "Replicas", "Leaders")

	replicaCounts := map[int]int{}
	leaderCounts := map[int]int{}
	for _, topic := range topology.Topics {
		for _, partition := range topic.Partitions {
			for _, replica := range partition.Replicas {
				replicaCounts[replica]++
			}
			if partition.HasLeader() {
				leaderCounts[partition.Leader]++
			}
		}
	}

	racks := BrokerRacks(topology.Brokers)
	ids := BrokerIDs(topology.Brokers)
	ids = append(ids, topology.OfflineBrokerIDs()...)
	sort.Ints(ids)

	for _, id := range ids {
		idStr := fmt.Sprintf("%d", id)
		rack, live := racks[id]
		if !live {
			idStr = fmt.Sprintf("%s (offline)", idStr)
			if util.InTerminal() {
				idStr = color.New(color.FgRed).Sprint(idStr)
			}
		}

		table.Append(
			[]string{
				idStr,
				rack,
				fmt.Sprintf("%d", replicaCounts[id]),
				fmt.Sprintf("%d", leaderCounts[id]),
			},
		)
	}

	table.Render()
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}

func newTable(buf *bytes.Buffer, numColumns int) *tablewriter.Table {
	configBuilder := tablewriter.NewConfigBuilder().WithRowAutoWrap(tw.WrapNone)
	for i := 0; i < numColumns; i++ {
		configBuilder = configBuilder.ForColumn(i).WithAlignment(tw.AlignLeft).Build()
	}

	return tablewriter.NewTable(buf,
		tablewriter.WithConfig(configBuilder.Build()),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.Border{
				Left:   tw.Off,
				Top:    tw.On,
				Right:  tw.Off,
				Bottom: tw.On,
			},
		}),
	)
}
