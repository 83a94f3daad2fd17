package task

import (
	"context"

	"labtrack/mail"
)

// TypeSendMail is the task type of the notification mail handler.
const TypeSendMail = "send_mail"

// PostSendMailTask queues a notification mail for delivery.
func PostSendMailTask(ctx context.Context, broker *Broker, subject string, recipients []string, text, html string, autoDelete bool) (Status, *BackgroundTask, error) {
	recipientValues := make([]any, len(recipients))
	for i, recipient := range recipients {
		recipientValues[i] = recipient
	}
	return broker.Post(ctx, TypeSendMail, map[string]any{
		"subject":    subject,
		"recipients": recipientValues,
		"text":       text,
		"html":       html,
	}, autoDelete)
}

// RegisterSendMailHandler plugs the mail handler into the broker.
func RegisterSendMailHandler(broker *Broker, sender mail.Sender) {
	broker.RegisterHandler(TypeSendMail, HandleSendMailTask(sender))
}

// HandleSendMailTask builds the send-mail task handler. Refused recipients
// are reported as a plain failure; every other send error is a fault and
// propagates to the dispatcher.
func HandleSendMailTask(sender mail.Sender) Handler {
	return func(ctx context.Context, data map[string]any) (bool, error) {
		message := mail.Message{
			Subject:    stringValue(data["subject"]),
			Recipients: stringSlice(data["recipients"]),
			Text:       stringValue(data["text"]),
			HTML:       stringValue(data["html"]),
		}
		if err := sender.Send(ctx, message); err != nil {
			if mail.IsRecipientsRefused(err) {
				return false, nil
			}
			return false, err
		}
		return true, nil
	}
}

func stringValue(value any) string {
	s, _ := value.(string)
	return s
}

// stringSlice tolerates both []string and the []any a JSONB round trip
// produces.
func stringSlice(value any) []string {
	switch values := value.(type) {
	case []string:
		return values
	case []any:
		result := make([]string, 0, len(values))
		for _, v := range values {
			if s, ok := v.(string); ok {
				result = append(result, s)
			}
		}
		return result
	default:
		return nil
	}
}
