package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"halmon/internal/logger"
	"halmon/internal/models"
	"halmon/internal/services"
)

func newAlarmsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alarms",
		Short: "Manage usage alarms",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd); err != nil {
				return err
			}
			return initLogger(false)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List alarms in removal order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(store *services.AlarmStore) error {
				return printAlarms(store.List())
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add <cpu|memory|disk> <threshold>",
		Short: "Add an alarm firing when usage reaches threshold percent",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			threshold, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("%w: %q is not a whole number", models.ErrInvalidThreshold, args[1])
			}
			return withStore(cmd.Context(), func(store *services.AlarmStore) error {
				idx, err := store.Add(args[0], threshold)
				if err != nil {
					return err
				}
				pterm.Success.Printf("Alarm #%d: %s\n", idx+1, store.List()[idx])
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <number>",
		Short: "Remove the alarm with the number shown by list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid alarm number %q", args[0])
			}
			return withStore(cmd.Context(), func(store *services.AlarmStore) error {
				removed, ok := store.RemoveAt(n - 1)
				if !ok {
					pterm.Warning.Printf("No alarm #%d (%d configured)\n", n, store.Len())
					return nil
				}
				pterm.Success.Printf("Removed %s\n", removed)
				return nil
			})
		},
	})
	return cmd
}

func printAlarms(alarms []models.Alarm) error {
	if len(alarms) == 0 {
		pterm.Info.Println("No alarms configured")
		return nil
	}
	rows := pterm.TableData{{"#", "Alarm", "Active"}}
	for i, a := range alarms {
		rows = append(rows, []string{strconv.Itoa(i + 1), a.String(), strconv.FormatBool(a.Active)})
	}
	return pterm.DefaultTable.WithHasHeader(true).WithData(rows).Render()
}

func withStore(ctx context.Context, fn func(*services.AlarmStore) error) error {
	store, closeStore, err := openStoreOnly(ctx)
	if err != nil {
		return err
	}
	defer closeStore()
	return fn(store)
}

// openStoreOnly loads the configured store without starting monitoring.
// A persistence failure on load is shown but not fatal.
func openStoreOnly(ctx context.Context) (*services.AlarmStore, func(), error) {
	if ctx == nil {
		ctx = context.Background()
	}
	backend, err := services.NewBackend(cfg.Store)
	if err != nil {
		return nil, nil, err
	}
	events, err := logger.NewEventLog(&cfg.Events)
	if err != nil {
		return nil, nil, err
	}

	store := services.NewAlarmStore(backend, events)
	if err := store.Load(ctx); err != nil {
		var pe *models.PersistenceError
		if !errors.As(err, &pe) {
			events.Close()
			return nil, nil, err
		}
		pterm.Warning.Println(err.Error())
	}

	closeFn := func() {
		if rb, ok := backend.(*services.RedisBackend); ok {
			_ = rb.Close()
		}
		_ = events.Close()
	}
	return store, closeFn, nil
}
