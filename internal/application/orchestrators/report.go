package orchestrators

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	emailAdapter "orgconsole/internal/adapters/email"
	"orgconsole/internal/domain/bulk"
)

// reportRenderer escapes raw HTML in the report source; ids come from user input.
var reportRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// Report is a rendered submission report.
type Report struct {
	Subject  string
	Markdown string
}

// BuildReport composes the markdown report for a settled submission.
// PRE: o came from bulk.NewOutcome
// POST: Subject names the kind and result; Markdown lists every id that was not created
func BuildReport(o bulk.Outcome, actor string, at time.Time) Report {
	title := "Bulk membership submission"
	if o.Kind == bulk.KindPayment {
		title = "Bulk merch payment"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "- **Result:** %s\n", o.Message())
	fmt.Fprintf(&b, "- **Target:** %s\n", o.Target)
	fmt.Fprintf(&b, "- **Operator:** %s\n", actor)
	fmt.Fprintf(&b, "- **When:** %s\n", at.UTC().Format("2006-01-02 15:04 MST"))
	if len(o.Missing) > 0 {
		fmt.Fprintf(&b, "\n## Not created (%d)\n\n", len(o.Missing))
		for _, id := range o.Missing {
			fmt.Fprintf(&b, "- `%s`\n", strings.ReplaceAll(id, "`", "'"))
		}
	}

	subject := fmt.Sprintf("%s: %s", title, o.Message())
	if o.Partial() {
		subject = "[partial] " + subject
	}
	return Report{Subject: subject, Markdown: b.String()}
}

// RenderMarkdown converts markdown to HTML.
func RenderMarkdown(md string) (string, error) {
	var buf bytes.Buffer
	if err := reportRenderer.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ErrNoReportRecipients is returned when a report is sent with no recipients configured.
var ErrNoReportRecipients = errors.New("no report recipients configured")

// SendReportInput carries the outcome to report.
type SendReportInput struct {
	Outcome bulk.Outcome
	Actor   string
	At      time.Time
}

// SendReportDeps holds dependencies for SendReport.
type SendReportDeps struct {
	Sender emailAdapter.Sender
	From   string
	To     []string
	// LogOnly marks a sender that only logs, so no recipients are needed.
	LogOnly bool
}

// NewSendReportDeps picks the report sender: Resend when an API key and
// recipients are configured, otherwise a NoopSender that logs each report.
func NewSendReportDeps(apiKey, from string, to []string) SendReportDeps {
	if apiKey != "" && len(to) > 0 {
		return SendReportDeps{Sender: emailAdapter.NewResendSender(apiKey, from), From: from, To: to}
	}
	return SendReportDeps{Sender: emailAdapter.NewNoopSender(), From: from, To: to, LogOnly: true}
}

// Enabled reports whether a report can be sent.
func (d SendReportDeps) Enabled() bool {
	return d.Sender != nil && (len(d.To) > 0 || d.LogOnly)
}

// ExecuteSendReport renders the report and hands it to the email provider.
// PRE: deps.Enabled()
// POST: One message with HTML and markdown text bodies is sent to deps.To
func ExecuteSendReport(ctx context.Context, input SendReportInput, deps SendReportDeps) (emailAdapter.SendResult, error) {
	if !deps.Enabled() {
		return emailAdapter.SendResult{}, ErrNoReportRecipients
	}
	report := BuildReport(input.Outcome, input.Actor, input.At)
	html, err := RenderMarkdown(report.Markdown)
	if err != nil {
		return emailAdapter.SendResult{}, fmt.Errorf("render report: %w", err)
	}
	res, err := deps.Sender.Send(ctx, emailAdapter.SendRequest{
		To:      deps.To,
		From:    deps.From,
		Subject: report.Subject,
		HTML:    html,
		Text:    report.Markdown,
	})
	if err != nil {
		return emailAdapter.SendResult{}, err
	}
	slog.Info("bulk_report_sent", "kind", input.Outcome.Kind, "message_id", res.MessageID, "recipients", len(deps.To))
	return res, nil
}
