package model

import (
	"bytes"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/segmentio/balancectl/pkg/util"
)

// FormatBrokerLoads creates a pretty table of the peak load of every broker in the model,
// relative to its capacity. Brokers above capacity for a resource are highlighted in red
// when the output is a terminal.
func FormatBrokerLoads(cm *ClusterModel) string {
	buf := &bytes.Buffer{}

	headers := []any{
		"ID",
		"Rack",
		"Host",
		"Alive",
		"Replicas",
		"Leaders",
		"CPU",
		"Network\nIn",
		"Network\nOut",
		"Disk",
	}

	configBuilder := tablewriter.NewConfigBuilder().WithRowAutoWrap(tw.WrapNone)
	for i := range headers {
		configBuilder = configBuilder.ForColumn(i).WithAlignment(tw.AlignLeft).Build()
	}

	table := tablewriter.NewTable(buf,
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

	table.Header(headers...)

	red := color.New(color.FgRed).SprintfFunc()

	for _, broker := range cm.Brokers() {
		load, _ := cm.BrokerLoad(broker.ID())

		alive := "✓"
		if !broker.IsAlive() {
			alive = "✗"
		}

		row := []string{
			fmt.Sprintf("%d", broker.ID()),
			broker.Rack(),
			broker.Host(),
			alive,
			fmt.Sprintf("%d", broker.NumReplicas()),
			fmt.Sprintf("%d", broker.NumLeaders()),
		}

		for _, resource := range AllResources() {
			used := load.Max(resource)
			limit := broker.Capacity().Get(resource)
			cell := fmt.Sprintf(
				"%s/%s (%s)",
				FormatResourceValue(resource, used),
				FormatResourceValue(resource, limit),
				formatPercent(used, limit),
			)
			if used > limit && util.InTerminal() {
				cell = red(cell)
			}
			row = append(row, cell)
		}

		table.Append(row)
	}

	table.Render()
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}

// FormatResourceValue renders a value of the argument resource in human-friendly units.
func FormatResourceValue(resource Resource, value float64) string {
	switch resource {
	case ResourceCPU:
		return fmt.Sprintf("%.2f cores", value)
	case ResourceNetworkIn, ResourceNetworkOut:
		return fmt.Sprintf("%s/s", humanize.Bytes(uint64(value*1000)))
	case ResourceDisk:
		return humanize.Bytes(uint64(value * 1000 * 1000))
	default:
		return fmt.Sprintf("%.2f", value)
	}
}

func formatPercent(used float64, limit float64) string {
	if limit <= 0 {
		if used > 0 {
			return "inf%"
		}
		return "0%"
	}
	return fmt.Sprintf("%.1f%%", 100.0*used/limit)
}
