package analyzer

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/segmentio/balancectl/pkg/model"
	"github.com/segmentio/balancectl/pkg/util"
)

const (
	maxPartitionNameLen = 60
	partitionSuffixLen  = 12
)

// FormatGoalResults creates a pretty table of the per-goal outcomes of a run.
func FormatGoalResults(goalResults []GoalResult) string {
	buf := &bytes.Buffer{}

	table := newTable(buf, "Goal", "Type", "State", "Actions", "Duration", "Error")

	green := color.New(color.FgGreen).SprintfFunc()
	red := color.New(color.FgRed).SprintfFunc()

	for _, goalResult := range goalResults {
		goalType := "soft"
		if goalResult.Hard {
			goalType = "hard"
		}

		state := goalResult.State.String()
		if util.InTerminal() {
			switch goalResult.State {
			case GoalSatisfied:
				state = green("%s", state)
			case GoalFailed:
				state = red("%s", state)
			}
		}

		var errStr string
		if goalResult.Err != nil {
			errStr = goalResult.Err.Error()
		}

		table.Append([]string{
			goalResult.Name,
			goalType,
			state,
			fmt.Sprintf("%d", goalResult.NumActions),
			util.PrettyDuration(goalResult.Duration),
			errStr,
		})
	}

	table.Render()
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}

// FormatProposals creates a pretty table of partition proposals. Brokers being added are
// highlighted in green and new leaders in cyan when the output is a terminal.
func FormatProposals(proposals []ExecutionProposal) string {
	buf := &bytes.Buffer{}

	table := newTable(
		buf,
		"Partition",
		"Old Replicas",
		"New Replicas",
		"Old\nLeader",
		"New\nLeader",
		"Actions",
	)

	green := color.New(color.FgGreen).SprintfFunc()
	cyan := color.New(color.FgCyan).SprintfFunc()

	for _, proposal := range proposals {
		added := map[int]struct{}{}
		for _, placement := range proposal.ReplicasToAdd() {
			added[placement.BrokerID] = struct{}{}
		}

		newReplicas := []string{}
		for _, placement := range proposal.NewReplicas {
			replicaStr := formatPlacement(placement)
			if _, ok := added[placement.BrokerID]; ok && util.InTerminal() {
				replicaStr = green("%s", replicaStr)
			}
			newReplicas = append(newReplicas, replicaStr)
		}

		newLeader := fmt.Sprintf("%d", proposal.NewLeader.BrokerID)
		if proposal.HasLeaderAction() && util.InTerminal() {
			newLeader = cyan("%s", newLeader)
		}

		actionNames := []string{}
		if proposal.HasReplicaAction() {
			actionNames = append(actionNames, "replicas")
		}
		if proposal.HasLeaderAction() {
			actionNames = append(actionNames, "leader")
		}
		if len(actionNames) == 0 {
			actionNames = append(actionNames, "order")
		}

		partitionStr, _ := util.TruncateStringMiddle(
			proposal.TopicPartition.String(),
			maxPartitionNameLen,
			partitionSuffixLen,
		)

		table.Append([]string{
			partitionStr,
			formatPlacements(proposal.OldReplicas),
			strings.Join(newReplicas, ", "),
			fmt.Sprintf("%d", proposal.OldLeader.BrokerID),
			newLeader,
			strings.Join(actionNames, ", "),
		})
	}

	table.Render()
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}

// FormatResult creates a summary of a run: the goal table, followed by the proposal table
// and any provisioning recommendation.
func FormatResult(result *Result) string {
	lines := []string{
		fmt.Sprintf("Status: %s", result.Status),
		fmt.Sprintf("Message: %s", result.Message),
		fmt.Sprintf("Duration: %s", util.PrettyDuration(result.Duration)),
		FormatGoalResults(result.GoalResults),
	}

	if len(result.Proposals) > 0 {
		lines = append(lines, FormatProposals(result.Proposals))
	}
	if result.Recommendation != nil {
		lines = append(
			lines,
			fmt.Sprintf("Recommendation: %s", result.Recommendation),
		)
	}
	if result.ProvisionResult != nil {
		lines = append(
			lines,
			fmt.Sprintf(
				"Provisioner: %s (%s)",
				result.ProvisionResult.State,
				result.ProvisionResult.Message,
			),
		)
	}

	return strings.Join(lines, "\n")
}

func newTable(buf *bytes.Buffer, headers ...any) *tablewriter.Table {
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
	return table
}

func formatPlacement(placement model.ReplicaPlacementInfo) string {
	if placement.Logdir == "" {
		return fmt.Sprintf("%d", placement.BrokerID)
	}
	return fmt.Sprintf("%d:%s", placement.BrokerID, placement.Logdir)
}

func formatPlacements(placements []model.ReplicaPlacementInfo) string {
	strs := []string{}
	for _, placement := range placements {
		strs = append(strs, formatPlacement(placement))
	}
	return strings.Join(strs, ", ")
}
