package cmd

import (
	"context"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"halmon/internal/models"
	"halmon/internal/services"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Take one reading and check it against every alarm",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initLogger(false); err != nil {
				return err
			}
			return runStatus(cmd.Context())
		},
	}
}

func runStatus(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	store, closeStore, err := openStoreOnly(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	if info, err := services.GetHostInfo(ctx); err == nil {
		pterm.DefaultSection.Printf("%s (%s %s)", info.Hostname, info.OS, info.Platform)
	}

	spinner, _ := pterm.DefaultSpinner.Start("Sampling...")
	sctx, cancel := context.WithTimeout(ctx, cfg.Monitor.SampleTimeout)
	sample, err := services.NewHostSampler(cfg.Monitor.CPUWindow, cfg.Monitor.DiskPath).Sample(sctx)
	cancel()
	if spinner != nil {
		_ = spinner.Stop()
	}
	if err != nil {
		pterm.Warning.Println(err.Error())
	}

	rows := pterm.TableData{{"Resource", "Usage", "Used", "Total"}}
	for _, rt := range models.ResourceTypes {
		rows = append(rows, usageRow(rt, sample))
	}
	if err := pterm.DefaultTable.WithHasHeader(true).WithData(rows).Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	triggered := services.EvaluateAll(store.List(), sample)
	if len(triggered) == 0 {
		pterm.Success.Printf("No alarm triggered (%d configured)\n", store.Len())
		return nil
	}
	for _, t := range triggered {
		pterm.Error.Println(t.Message())
	}
	return nil
}

func usageRow(rt models.ResourceType, s models.Sample) []string {
	p, ok := s.Percent(rt)
	if !ok {
		return []string{rt.Label(), "unavailable", "-", "-"}
	}
	used, total := "-", "-"
	switch rt {
	case models.ResourceCPU:
		total = fmt.Sprintf("%d cores", s.CPU.CoreCount)
	case models.ResourceMemory:
		used, total = fmt.Sprintf("%.2f GB", s.Memory.UsedGB), fmt.Sprintf("%.2f GB", s.Memory.TotalGB)
	case models.ResourceDisk:
		used, total = fmt.Sprintf("%.2f GB", s.Disk.UsedGB), fmt.Sprintf("%.2f GB", s.Disk.TotalGB)
	}
	return []string{rt.Label(), fmt.Sprintf("%.1f%%", p), used, total}
}
