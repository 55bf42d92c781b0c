package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"qapages/report"
)

const (
	maxUnifiedFailures = 8
	maxUnifiedSkips    = 5

	passedBanner = "✅✅✅"
	failedBanner = "❌❌❌"
	passedLine   = "🎉 Great news team! All tests passed."
	failedLine   = "⚠️ Some tests need attention. Details below."
)

//go:embed templates/report_email.html.tmpl
var emailTemplateFS embed.FS

var emailTemplate = template.Must(template.ParseFS(emailTemplateFS, "templates/report_email.html.tmpl")) //nolint:gochecknoglobals

// LaunchMessage announces that a run has started.
func LaunchMessage(env, name string, start time.Time) Message {
	text := fmt.Sprintf("🚀 *[%s] %s* has launched!\n🕒 *Start Time:* %s",
		env, name, start.Format(report.TimeLayout))
	return Message{Subject: "Started: " + name, Text: text}
}

// SuiteMessage renders one suite's report. contexts maps test method names
// to a short description; runURL links the published run when set.
func SuiteMessage(env string, rep *report.SuiteReport, contexts map[string]string, runURL string) Message {
	var b strings.Builder
	writeHeader(&b, env, rep.SuiteName, rep.AllPassed())
	writeSummary(&b, rep.Total, rep.Passed, rep.Failed, rep.Skipped, rep.SuccessRate, rep.Duration, rep.StartTime, rep.EndTime)

	if rep.Failed > 0 {
		fmt.Fprintf(&b, "\n*❌ Failed Tests (%d):*\n", rep.Failed)
		for i, res := range rep.FailedDetails {
			fmt.Fprintf(&b, "\n*%d. %s*\n", i+1, res.TestName)
			if res.ErrorMessage != "" {
				fmt.Fprintf(&b, "   *Error:* %s\n", report.CleanErrorMessage(res.ErrorMessage))
			}
			fmt.Fprintf(&b, "   *Duration:* %.2fs\n", res.Duration)
			if res.ScreenshotPath != "" {
				fmt.Fprintf(&b, "   *Screenshot:* `%s`\n", res.ScreenshotPath)
			}
			fmt.Fprintf(&b, "   *Context:* %s\n", report.TestContext(res.TestName, contexts))
		}
	}
	if rep.Skipped > 0 {
		fmt.Fprintf(&b, "\n*⚠️ Skipped Tests (%d):*\n", rep.Skipped)
		for i, res := range rep.SkippedDetails {
			fmt.Fprintf(&b, "\n*%d. %s*\n", i+1, res.TestName)
			fmt.Fprintf(&b, "   *Reason:* %s\n", report.CleanErrorMessage(skipReason(res)))
			fmt.Fprintf(&b, "   *Duration:* %.2fs\n", res.Duration)
			fmt.Fprintf(&b, "   *Context:* %s\n", report.TestContext(res.TestName, contexts))
		}
	}
	writeLink(&b, runURL)

	return Message{
		Subject: subject(rep.SuiteName, rep.AllPassed()),
		Text:    b.String(),
		HTML:    renderEmail(env, rep.SuiteName, rep.AllPassed(), rep.Total, rep.Passed, rep.Failed, rep.Skipped, rep.SuccessRate, rep.Duration, rep.FailedDetails, runURL),
	}
}

// UnifiedMessage renders a multi-suite report. At most eight failures and five
// skips are listed.
func UnifiedMessage(env string, u *report.UnifiedReport, runURL string) Message {
	var b strings.Builder
	writeHeader(&b, env, u.SuiteName, u.AllPassed())
	writeSummary(&b, u.Total, u.Passed, u.Failed, u.Skipped, u.SuccessRate, u.Duration, u.StartTime, u.EndTime)

	b.WriteString("\n*📋 Suite Breakdown:*\n")
	for _, name := range u.SuitesRun {
		rep := u.Suites[name]
		if rep == nil {
			continue
		}
		mark := "✅"
		if !rep.AllPassed() {
			mark = "❌"
		}
		fmt.Fprintf(&b, "• %s %s: %d/%d passed\n", mark, strings.ToUpper(name), rep.Passed, rep.Total)
	}

	if n := len(u.AllFailed); n > 0 {
		fmt.Fprintf(&b, "\n*❌ Failed Tests (%d):*\n", n)
		for i, res := range u.AllFailed {
			if i == maxUnifiedFailures {
				fmt.Fprintf(&b, "\n... and %d more failures", n-maxUnifiedFailures)
				break
			}
			msg := res.ErrorMessage
			if msg == "" {
				msg = "Unknown error"
			}
			fmt.Fprintf(&b, "\n%d. *[%s]* %s\n   Error: %s\n", i+1, strings.ToUpper(res.Suite), res.TestName, report.CleanErrorMessage(msg))
		}
	}
	if n := len(u.AllSkipped); n > 0 {
		fmt.Fprintf(&b, "\n*⚠️ Skipped Tests (%d):*\n", n)
		for i, res := range u.AllSkipped {
			if i == maxUnifiedSkips {
				fmt.Fprintf(&b, "\n... and %d more skipped tests", n-maxUnifiedSkips)
				break
			}
			fmt.Fprintf(&b, "\n%d. *[%s]* %s\n   Reason: %s\n", i+1, strings.ToUpper(res.Suite), res.TestName, report.CleanErrorMessage(skipReason(res)))
		}
	}
	writeLink(&b, runURL)

	return Message{
		Subject: subject(u.SuiteName, u.AllPassed()),
		Text:    b.String(),
		HTML:    renderEmail(env, u.SuiteName, u.AllPassed(), u.Total, u.Passed, u.Failed, u.Skipped, u.SuccessRate, u.Duration, u.AllFailed, runURL),
	}
}

// RunURL joins the public site URL and a run folder name. It returns "" when
// no public URL is configured.
func RunURL(publicURL, runName string) string {
	if publicURL == "" || runName == "" {
		return ""
	}
	return strings.TrimRight(publicURL, "/") + "/" + runName + "/index.html"
}

func writeHeader(b *strings.Builder, env, name string, passed bool) {
	banner, line := passedBanner, passedLine
	if !passed {
		banner, line = failedBanner, failedLine
	}
	fmt.Fprintf(b, "*%s* *[%s]* *%s* - Test Report *%s*\n\n%s\n\n", banner, env, name, banner, line)
}

func writeSummary(b *strings.Builder, total, passed, failed, skipped int, rate, duration float64, start, end string) {
	fmt.Fprintf(b, "*📊 Summary*\n"+
		"• Total Tests: %d\n"+
		"• Passed: %d ✅\n"+
		"• Failed: %d ❌\n"+
		"• Skipped: %d ⚠️\n"+
		"• Success Rate: %.1f%%\n"+
		"• Duration: %.2fs\n\n"+
		"*🕐 Execution Time*\n"+
		"• Start: %s\n"+
		"• End: %s\n",
		total, passed, failed, skipped, rate, duration, start, end)
}

func writeLink(b *strings.Builder, runURL string) {
	if runURL != "" {
		fmt.Fprintf(b, "\n🔗 <%s|Open published run>\n", runURL)
	}
}

func skipReason(res report.Result) string {
	if res.SkipReason != "" {
		return res.SkipReason
	}
	return "Skipped"
}

func subject(name string, passed bool) string {
	if passed {
		return "Test PASS: " + name
	}
	return "Test FAIL: " + name
}

type emailData struct {
	Env, Name                       string
	Passed                          bool
	Total, PassedN, Failed, Skipped int
	SuccessRate, Duration           float64
	Failures                        []report.Result
	RunURL                          string
}

func renderEmail(env, name string, passed bool, total, passedN, failed, skipped int, rate, duration float64, failures []report.Result, runURL string) string {
	var buf bytes.Buffer
	err := emailTemplate.Execute(&buf, emailData{
		Env: env, Name: name, Passed: passed,
		Total: total, PassedN: passedN, Failed: failed, Skipped: skipped,
		SuccessRate: rate, Duration: duration,
		Failures: failures, RunURL: runURL,
	})
	if err != nil {
		return ""
	}
	return buf.String()
}
