package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"streamchat/internal/transcript"
)

func newTranscriptsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcripts",
		Short: "Manage saved transcripts",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List saved transcripts",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			ids, err := store.List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, id := range ids {
				file, err := store.Load(id)
				if err != nil {
					fmt.Fprintf(out, "%s\t(unreadable: %v)\n", id, err)
					continue
				}
				fmt.Fprintf(out, "%s\t%s\t%s\t%d turns\n",
					id, file.StartTime.Format("2006-01-02 15:04"), file.Model, len(file.Entries))
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Print a saved transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			file, err := store.Load(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, e := range file.Entries {
				fmt.Fprintf(out, "%s:\n%s\n", e.Name, e.Text)
				for _, a := range e.Attachments {
					fmt.Fprintf(out, "  [%s, %s, %d bytes]\n", a.Name, a.MIMEType, a.Size)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a saved transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			return store.Delete(args[0])
		},
	})

	return cmd
}

func openStore() (*transcript.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return transcript.NewStore(cfg.Transcript.Dir)
}

func readAll(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
