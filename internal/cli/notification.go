package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewNotificationCmd создаёт группу команд для работы с очередью вопросов.
func NewNotificationCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notification",
		Aliases: []string{"n"},
		Short:   "Manage confirmation notifications",
	}

	cmd.AddCommand(
		newNotificationListCmd(clientFn, outputFn),
		newNotificationEnqueueCmd(clientFn, outputFn),
		newNotificationShowCmd(clientFn, outputFn),
		newNotificationCorrelationCmd(clientFn, outputFn),
	)

	return cmd
}

// notificationHeaders — колонки табличного вывода.
var notificationHeaders = []string{"ID", "USER", "CHANNEL", "STATUS", "ATTEMPTS", "RESPONDED", "RESPONSE", "CREATED"}

func notificationRow(n NotificationResponse) []string {
	return []string{
		n.ID,
		strconv.FormatInt(n.UserID, 10),
		n.Channel,
		n.Status,
		strconv.Itoa(n.AttemptCount),
		strconv.FormatBool(n.Responded),
		n.ResponseValue,
		n.CreatedAt,
	}
}

func newNotificationListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			notifications, err := client.ListNotifications(ListNotificationsOpts{
				Status: status,
				Limit:  limit,
			})
			if err != nil {
				return err
			}

			rows := make([][]string, len(notifications))
			for i, n := range notifications {
				rows[i] = notificationRow(n)
			}

			out.Print(notificationHeaders, rows, notifications)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status (pending|sent|responded|failed)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum rows to return")

	return cmd
}

func newNotificationEnqueueCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var req EnqueueRequest
	var payloadJSON string

	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Enqueue a confirmation question",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if payloadJSON != "" {
				if err := json.Unmarshal([]byte(payloadJSON), &req.Payload); err != nil {
					return fmt.Errorf("invalid --payload: %w", err)
				}
			}

			n, err := client.EnqueueNotification(req)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Notification enqueued: %s (correlation %s)", n.ID, n.CorrelationID))
			out.Print(notificationHeaders, [][]string{notificationRow(*n)}, n)
			return nil
		},
	}

	cmd.Flags().Int64Var(&req.UserID, "user-id", 0, "Target user id (required)")
	cmd.Flags().StringVar(&req.Channel, "channel", "whatsapp", "Delivery channel (whatsapp|telegram)")
	cmd.Flags().StringVar(&req.Provider, "provider", "", "Provider override (zapi|telegram)")
	cmd.Flags().StringVar(&req.Recipient, "recipient", "", "Recipient phone / chat id (required)")
	cmd.Flags().StringVar(&req.AlertType, "alert-type", "new_search_result", "Alert type")
	cmd.Flags().StringVar(&req.EntityType, "entity-type", "lot", "Entity type")
	cmd.Flags().Int64Var(&req.EntityID, "entity-id", 0, "Entity id (required)")
	cmd.Flags().Int64Var(&req.SavedSearchID, "saved-search-id", 0, "Saved search id")
	cmd.Flags().StringVar(&req.InteractionKind, "kind", "", "Interaction kind (default: ask_details)")
	cmd.Flags().StringVar(&payloadJSON, "payload", "", "Message payload as JSON object")
	cmd.MarkFlagRequired("user-id")
	cmd.MarkFlagRequired("recipient")
	cmd.MarkFlagRequired("entity-id")

	return cmd
}

func newNotificationShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show notification details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			n, err := client.GetNotification(args[0])
			if err != nil {
				return err
			}

			out.Print(notificationHeaders, [][]string{notificationRow(*n)}, n)
			return nil
		},
	}
}

func newNotificationCorrelationCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "correlation ID",
		Short: "Show notification by correlation id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			n, err := client.GetByCorrelation(args[0])
			if err != nil {
				return err
			}

			out.Print(notificationHeaders, [][]string{notificationRow(*n)}, n)
			return nil
		},
	}
}
