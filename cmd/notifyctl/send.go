package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/wolfman30/voicemail-notifier/internal/http/handlers"
	"github.com/wolfman30/voicemail-notifier/internal/voicemail"
)

func sendCmd(load pipelineLoader) *cobra.Command {
	var (
		file  string
		shape string
	)
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Run one payload through the pipeline and deliver it",
		Long: `Reads a webhook payload from --file ("-" for stdin), runs it through
normalization, rendering and delivery with the configured transports, and
prints the same JSON body the HTTP endpoint would return.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := voicemail.ParseShape(shape)
			if err != nil {
				return err
			}
			raw, err := readPayload(file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			p, err := load()
			if err != nil {
				return err
			}
			return runSend(cmd.Context(), cmd.OutOrStdout(), p.Service, raw, parsed)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", `payload file, or "-" for stdin`)
	cmd.Flags().StringVar(&shape, "shape", "auto", "payload shape: auto, telephony or assistant")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func readPayload(file string, stdin io.Reader) ([]byte, error) {
	if file == "-" {
		return io.ReadAll(io.LimitReader(stdin, handlers.MaxBodyBytes))
	}
	raw, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	return raw, nil
}

// runSend prints the response body and fails when delivery did not succeed.
func runSend(ctx context.Context, w io.Writer, n handlers.Notifier, raw []byte, shape voicemail.Shape) error {
	if ctx == nil {
		ctx = context.Background()
	}
	out, err := n.Notify(ctx, raw, shape)
	status, body := handlers.Respond(out, err)

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(body); encErr != nil {
		return encErr
	}
	if status != http.StatusOK {
		return fmt.Errorf("notification not sent (status %d)", status)
	}
	return nil
}
