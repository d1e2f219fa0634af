package main

import (
	"fmt"

	"consigli/internal/amqp"
	"consigli/internal/log"
	"consigli/internal/worker"

	"github.com/spf13/cobra"
)

func eventsCmd(st *rootState) *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Consume published events from the AMQP queue",
		Long:  "Consume expense and advice events. With --refresh-advice a new advisory\nis generated after every recorded expense.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if st.cfg.AMQPURL == "" {
				return fmt.Errorf("AMQP_URL is not configured")
			}
			if st.cfg.AMQPQueue == "" {
				return fmt.Errorf("AMQP_QUEUE is not configured")
			}

			client, err := amqp.NewClient(st.cfg.AMQPURL, st.cfg.AMQPExchange, st.cfg.AMQPQueue)
			if err != nil {
				return fmt.Errorf("connect to AMQP: %w", err)
			}
			defer client.Close()
			if err := client.Ping(); err != nil {
				return fmt.Errorf("AMQP connection not usable: %w", err)
			}

			var generator worker.AdviceGenerator
			if refresh {
				app, err := st.app(ctx)
				if err != nil {
					return err
				}
				defer func() {
					if err := app.Close(); err != nil {
						st.logger.Error("Cleanup failed", log.FieldError, err)
					}
				}()
				generator = app.Advisor
			}

			w := worker.NewEventWorker(generator, st.logger)
			err = w.Run(ctx, client)
			st.logger.Info("Event worker stopped", "handled", w.Counts())
			return err
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh-advice", false, "generate an advisory after each recorded expense")
	return cmd
}
