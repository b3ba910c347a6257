package report

import (
	"html/template"
	"strings"
	"time"
)

var reportTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"labels": func(names []string) string {
		if len(names) == 0 {
			return "No Labels"
		}
		return strings.Join(names, ", ")
	},
	"day": func(t time.Time) string {
		return t.Format("2006-01-02")
	},
	"stamp": func(t time.Time) string {
		return t.Format("Jan 2, 2006 15:04")
	},
}).Parse(`<html>
<head>
<style>
  table { width: 100%; border-collapse: collapse; }
  th, td { border: 1px solid #dddddd; text-align: left; padding: 8px; }
  th { background-color: #f2f2f2; }
  tr:nth-child(even) { background-color: #f9f9f9; }
</style>
</head>
<body>
<h2>Weekly Trello Report</h2>
<p><strong>Reporting Period:</strong> {{day .Start}} to {{day .End}}</p>
<p><strong>Total Tasks Completed:</strong> {{.Count}}</p>
<table>
  <tr>
    <th>Task Name</th>
    <th>Labels</th>
    <th>Status</th>
    <th>Completed Date</th>
    <th>URL</th>
  </tr>
{{- range .Tasks}}
  <tr>
    <td>{{.Name}}</td>
    <td>{{labels .Labels}}</td>
    <td>{{.Status}}</td>
    <td>{{stamp .CompletedAt}}</td>
    <td><a href="{{.URL}}">Link</a></td>
  </tr>
{{- end}}
</table>
</body>
</html>
`))

// Render produces the HTML table for a report. Pure function of its input;
// html/template handles escaping of card names and label text.
func Render(rep Report) (string, error) {
	var sb strings.Builder
	if err := reportTmpl.Execute(&sb, rep); err != nil {
		return "", err
	}
	return sb.String(), nil
}
