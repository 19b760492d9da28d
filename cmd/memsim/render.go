package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/vkngwrapper/memsim/memutils"
	"github.com/vkngwrapper/memsim/process"
	"github.com/vkngwrapper/memsim/sim"
)

var (
	// Color palette
	primaryColor = lipgloss.Color("#7D56F4")
	successColor = lipgloss.Color("#04B575")
	warningColor = lipgloss.Color("#FFA500")
	errorColor   = lipgloss.Color("#FF4B4B")
	mutedColor   = lipgloss.Color("#666666")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	tableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Underline(true)

	reservedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	freeStyle = lipgloss.NewStyle().
			Foreground(successColor)

	occupiedStyle = lipgloss.NewStyle().
			Foreground(warningColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true)

	eventStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)
)

const (
	regionRowFormat  = "%-10s %-10s %-10s %-6s %-24s %s"
	processRowFormat = "%-5s %-20s %-10s %-9s %-10s %s"
)

func renderSnapshot(snapshot sim.Snapshot) string {
	var b strings.Builder

	title := fmt.Sprintf("Memory map: %s model", snapshot.Model)
	if snapshot.Model == sim.ModelVariableStatic {
		title += fmt.Sprintf(", %s fit", snapshot.FitPolicy)
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")

	b.WriteString(tableHeaderStyle.Render(fmt.Sprintf(regionRowFormat, "ADDRESS", "SIZE", "STATE", "LABEL", "OWNER", "USAGE")))
	b.WriteString("\n")
	for _, region := range snapshot.Regions {
		b.WriteString(renderRegion(snapshot.Model, region))
		b.WriteString("\n")
	}

	report := snapshot.Report
	b.WriteString(fmt.Sprintf("Free %d of %d KiB, largest free region %d KiB\n",
		report.TotalFree, report.Capacity, report.LargestFree))
	if snapshot.Model == sim.ModelDynamic {
		b.WriteString(fmt.Sprintf("External fragmentation %d KiB\n", report.ExternalFragmentation))
		b.WriteString(fmt.Sprintf("Compaction: %d passes, %d blocks and %d KiB moved\n",
			snapshot.Compaction.Passes, snapshot.Compaction.AllocationsMoved, snapshot.Compaction.BytesMoved))
	} else {
		b.WriteString(fmt.Sprintf("Internal fragmentation %d KiB\n", report.InternalFragmentation))
	}

	b.WriteString("\n")
	b.WriteString(titleStyle.Render("Processes"))
	b.WriteString("\n")
	if len(snapshot.Processes) == 0 {
		b.WriteString("(none)\n")
		return b.String()
	}

	b.WriteString(tableHeaderStyle.Render(fmt.Sprintf(processRowFormat, "ID", "NAME", "SIZE", "STATE", "ADDRESS", "SEGMENTS")))
	b.WriteString("\n")
	for _, p := range snapshot.Processes {
		row := fmt.Sprintf(processRowFormat, p.ID, p.Name, kib(p.Size), p.State, p.Address, p.SegmentSummary())
		if p.State == process.StateRunning {
			row = occupiedStyle.Render(row)
		}
		b.WriteString(row)
		b.WriteString("\n")
	}

	return b.String()
}

func renderRegion(model sim.Model, region sim.RegionView) string {
	switch {
	case region.Reserved:
		return reservedStyle.Render(fmt.Sprintf(regionRowFormat, region.Address, kib(region.Size), "reserved", region.Label, "", ""))
	case region.Free:
		return freeStyle.Render(fmt.Sprintf(regionRowFormat, region.Address, kib(region.Size), "free", region.Label, "", ""))
	}

	owner := fmt.Sprintf("%s %s", region.Owner, region.OwnerName)
	usage := ""
	if model.Partitioned() {
		usage = fmt.Sprintf("%.1f%% (%d KiB unused)", region.Efficiency, region.InternalFragmentation)
	}
	return occupiedStyle.Render(fmt.Sprintf(regionRowFormat, region.Address, kib(region.Size), "occupied", region.Label, owner, usage))
}

// describeEvent turns an event into a single line of narrative. It returns false for events
// that are reported some other way.
func describeEvent(event sim.Event) (string, bool) {
	switch event.Type {
	case sim.EventProcessCreated:
		return fmt.Sprintf("created %s", event.Process), true
	case sim.EventProcessRemoved:
		return fmt.Sprintf("removed %s", event.Process), true
	case sim.EventAllocated:
		line := fmt.Sprintf("allocated %s at %s", event.Process, memutils.HexAddress(event.Region.Offset))
		if event.Region.Label != "" {
			line += fmt.Sprintf(" in %s (%d KiB)", event.Region.Label, event.Region.Size)
		}
		return line, true
	case sim.EventFreed:
		return fmt.Sprintf("freed %s at %s", event.Process, memutils.HexAddress(event.Region.Offset)), true
	case sim.EventBlockRelocated:
		return fmt.Sprintf("moved %s", event.Move), true
	case sim.EventCompacted:
		return fmt.Sprintf("compacted: %d blocks and %d KiB moved, %d free regions merged",
			event.Compaction.AllocationsMoved, event.Compaction.BytesMoved, event.Compaction.FreeRegionsMerged), true
	case sim.EventPolicyChanged:
		return fmt.Sprintf("fit policy is now %s", event.Policy), true
	case sim.EventReset:
		return "reset", true
	}

	return "", false
}

func kib(size int) string {
	return fmt.Sprintf("%d KiB", size)
}
