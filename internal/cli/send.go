package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ignite/graphmail/internal/domain"
)

var sendFlags struct {
	profile    string
	from       string
	fromName   string
	subject    string
	html       string
	text       string
	recipients []string
	queue      bool
}

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a notification to one or more recipients",
	Long: `Send a notification through a sender profile.

By default the command blocks until every recipient has been attempted and
prints the job record. With --queue the job is handed to the worker.

Example:
  graphmailctl send --to alice@contoso.com,bob@contoso.com \
    --subject "Page published" --html "<p>Your page is live.</p>"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if len(sendFlags.recipients) == 0 {
			return errors.New("at least one --to recipient is required")
		}
		job := domain.NotificationJob{
			Profile: sendFlags.profile,
			Message: domain.MessageJob{
				Template: domain.MessageTemplate{
					Subject:   sendFlags.subject,
					BodyHTML:  sendFlags.html,
					PlainText: sendFlags.text,
				},
				SenderEmail: sendFlags.from,
				SenderName:  sendFlags.fromName,
			},
		}
		for _, r := range sendFlags.recipients {
			if r = strings.TrimSpace(r); r != "" {
				job.Recipients = append(job.Recipients, domain.JobRecipient{Email: r})
			}
		}

		var (
			rec *domain.JobRecord
			err error
		)
		if sendFlags.queue {
			rec, err = notificationService.Enqueue(cmd.Context(), job)
		} else {
			rec, err = notificationService.SendNow(cmd.Context(), job)
		}
		if rec != nil {
			if perr := printJSON(cmd.OutOrStdout(), rec); perr != nil {
				return perr
			}
		}
		return err
	},
}

var jobCmd = &cobra.Command{
	Use:   "job <id>",
	Short: "Show the record of a notification job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, err := notificationService.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), rec)
	},
}

func init() {
	f := sendCmd.Flags()
	f.StringVar(&sendFlags.profile, "profile", domain.DefaultProfileName, "sender profile")
	f.StringVar(&sendFlags.from, "from", "", "sender address overriding the profile default")
	f.StringVar(&sendFlags.fromName, "from-name", "", "sender display name")
	f.StringVar(&sendFlags.subject, "subject", "", "message subject")
	f.StringVar(&sendFlags.html, "html", "", "HTML body")
	f.StringVar(&sendFlags.text, "text", "", "plain text body, used when --html is empty")
	f.StringSliceVar(&sendFlags.recipients, "to", nil, "recipient addresses, comma separated")
	f.BoolVar(&sendFlags.queue, "queue", false, "queue the job for the worker instead of sending now")
	_ = sendCmd.MarkFlagRequired("subject")
}
