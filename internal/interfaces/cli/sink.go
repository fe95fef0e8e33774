package cli

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/nlp-inference-service/internal/config"
	"github.com/turtacn/nlp-inference-service/internal/infrastructure/messaging"
	"github.com/turtacn/nlp-inference-service/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/nlp-inference-service/internal/infrastructure/monitoring/logging"
)

// envelopeSource is the consuming side of the metric topic.
type envelopeSource interface {
	Consume(ctx context.Context, handler kafka.MessageHandler) error
	Close() error
}

// newEnvelopeSource is swapped in tests.
var newEnvelopeSource = func(cfg kafka.ConsumerConfig, logger logging.Logger) (envelopeSource, error) {
	return kafka.NewConsumer(cfg, logger)
}

type sinkTailOptions struct {
	brokers  []string
	topic    string
	group    string
	from     string
	limit    int
	username string
	password string
	tls      bool
}

// NewSinkCmd creates the sink command group.
func NewSinkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sink",
		Short: "Inspect the metric sink",
	}
	cmd.AddCommand(newSinkTailCmd())
	return cmd
}

func newSinkTailCmd() *cobra.Command {
	opts := &sinkTailOptions{}
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Print metric envelopes as they arrive on the Kafka topic",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			return runSinkTail(cmd, cliCtx, opts)
		},
	}
	f := cmd.Flags()
	f.StringSliceVar(&opts.brokers, "brokers", nil, "Kafka bootstrap brokers (required)")
	f.StringVar(&opts.topic, "topic", config.DefaultSinkTopic, "metric topic")
	f.StringVar(&opts.group, "group", "", "consumer group; offsets are committed when set")
	f.StringVar(&opts.from, "from", "latest", "start offset without a group: earliest|latest")
	f.IntVar(&opts.limit, "limit", 0, "stop after this many envelopes (0 = until interrupted)")
	f.StringVar(&opts.username, "sasl-username", "", "SASL/PLAIN username")
	f.StringVar(&opts.password, "sasl-password", "", "SASL/PLAIN password")
	f.BoolVar(&opts.tls, "tls", false, "connect with TLS")
	_ = cmd.MarkFlagRequired("brokers")
	return cmd
}

func runSinkTail(cmd *cobra.Command, cliCtx *CLIContext, opts *sinkTailOptions) error {
	cfg := kafka.ConsumerConfig{
		Brokers:     opts.brokers,
		Topic:       opts.topic,
		GroupID:     opts.group,
		StartOffset: opts.from,
		Security: kafka.SecurityConfig{
			SASLUsername: opts.username,
			SASLPassword: opts.password,
			TLSEnabled:   opts.tls,
		},
	}
	if opts.username != "" {
		cfg.Security.SASLMechanism = "PLAIN"
	}

	src, err := newEnvelopeSource(cfg, cliCtx.Logger)
	if err != nil {
		return err
	}
	defer src.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	var printed atomic.Int64
	handler := func(_ context.Context, msg *kafka.Message) error {
		env, err := messaging.DecodeEnvelope(msg.Value)
		if err != nil {
			return err
		}
		if err := printEnvelope(cmd, cliCtx.OutputFormat, env); err != nil {
			return err
		}
		if n := printed.Add(1); opts.limit > 0 && n >= int64(opts.limit) {
			cancel()
		}
		return nil
	}
	return src.Consume(ctx, handler)
}

func printEnvelope(cmd *cobra.Command, format string, env *messaging.Envelope) error {
	if format == OutputJSON {
		return printJSON(cmd, env)
	}
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s  %-16s  %s  %s\n",
		env.Timestamp.Format(time.RFC3339), env.EventType, env.EventID, string(env.Payload))
	return err
}

//Personal.AI order the ending
