package errors

import (
	"fmt"
	"html"
	"strings"
)

// Overlay generates the HTML error overlay injected into composed pages
// during development. It returns an empty string when nothing failed.
// All error text is escaped; render failures must never smuggle markup
// into the host page.
func (c *Collector) Overlay() string {
	errs := c.Errors()
	if len(errs) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(`
<div id="umbra-error-overlay" style="
	position: fixed;
	top: 0;
	left: 0;
	width: 100%;
	height: 100%;
	background: rgba(0, 0, 0, 0.8);
	color: white;
	font-family: 'Monaco', 'Menlo', monospace;
	font-size: 14px;
	z-index: 9999;
	padding: 20px;
	box-sizing: border-box;
	overflow: auto;
">
	<div style="max-width: 1000px; margin: 0 auto;">
		<div style="display: flex; justify-content: space-between; align-items: center; margin-bottom: 20px;">
			<h2 style="margin: 0; color: #ff6b6b;">Fragment Errors</h2>
			<button onclick="document.getElementById('umbra-error-overlay').style.display='none'"
					style="background: none; border: 1px solid #ccc; color: white; padding: 5px 10px; cursor: pointer;">
				Close
			</button>
		</div>
		<div>`)

	for _, e := range errs {
		severityColor := "#ff6b6b"
		switch e.Severity {
		case SeverityWarning:
			severityColor = "#feca57"
		case SeverityInfo:
			severityColor = "#48dbfb"
		}

		source := e.Op
		if e.Fragment != "" {
			source = fmt.Sprintf("%s <%s>", e.Op, e.Fragment)
		}

		fmt.Fprintf(&b, `
			<div style="
				background: #2d3748;
				padding: 15px;
				margin-bottom: 15px;
				border-radius: 4px;
				border-left: 4px solid %s;
			">
				<div style="display: flex; justify-content: space-between; align-items: center; margin-bottom: 10px;">
					<span style="color: %s; font-weight: bold;">%s</span>
					<span style="color: #a0aec0; font-size: 12px;">%s</span>
				</div>
				<div style="color: #e2e8f0; margin-bottom: 5px;">
					<strong>%s</strong>
				</div>
				<div style="color: #a0aec0; font-size: 12px;">
					%s
				</div>
			</div>
		`, severityColor, severityColor, e.Severity.String(), e.Timestamp.Format("15:04:05"),
			html.EscapeString(e.Message), html.EscapeString(source))
	}

	b.WriteString(`
		</div>
	</div>
</div>`)

	return b.String()
}
