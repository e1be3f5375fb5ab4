package cmd

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/spf13/cobra"
)

// doctorCmd represents the doctor command
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the build environment",
	Long: `Report host resources and the state of the working directory
before a build: CPU, memory, free disk space, and whether the store and
dataset file are reachable.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Check", "Value")

	if counts, err := cpu.Counts(true); err == nil {
		table.Append([]string{"CPU threads", fmt.Sprintf("%d", counts)})
	}
	if vmem, err := mem.VirtualMemory(); err == nil {
		table.Append([]string{"Memory", fmt.Sprintf("%.1f GiB total, %.0f%% used",
			float64(vmem.Total)/(1<<30), vmem.UsedPercent)})
	}

	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	if usage, err := disk.Usage(wd); err == nil {
		table.Append([]string{"Disk free", fmt.Sprintf("%.1f GiB", float64(usage.Free)/(1<<30))})
	}

	storeStatus := "ok"
	st, err := openStore(cfg)
	if err != nil {
		storeStatus = err.Error()
	} else {
		if err := st.HealthCheck(); err != nil {
			storeStatus = err.Error()
		} else if version, err := st.SchemaVersion(); err == nil {
			storeStatus = fmt.Sprintf("ok (schema version %d)", version)
		}
		st.Close()
	}
	table.Append([]string{"Store", storeStatus})

	dataset := "absent (fresh start)"
	if info, err := os.Stat(cfg.Data.MetaReviewFile); err == nil {
		dataset = fmt.Sprintf("%d bytes", info.Size())
	}
	table.Append([]string{"Meta-review file", dataset})

	credential := "not set"
	if cfg.GCI.Token != "" {
		credential = "set"
	}
	table.Append([]string{"GCI token", credential})

	table.Render()
	return nil
}
