// Package report renders the HTML index page summarizing the exported classes.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cbroglie/mustache"
)

const indexTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Klassroom export</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; }
th, td { border: 1px solid #ccc; padding: 0.4em 0.8em; text-align: left; }
th { background: #f0f0f0; }
</style>
</head>
<body>
<h1>Klassroom export</h1>
<p>Generated {{generated}}</p>
<table>
<tr><th>Class</th><th>School</th><th>Level</th><th>Key</th><th>Posts</th><th>Attachments</th></tr>
{{#classes}}
<tr><td><a href="{{dir}}/">{{name}}</a></td><td>{{school}}</td><td>{{level}}</td><td>{{key}}</td><td>{{posts}}</td><td>{{attachments}}</td></tr>
{{/classes}}
</table>
</body>
</html>
`

// ClassEntry is one row of the index page
type ClassEntry struct {
	Name        string
	School      string
	Level       string
	Key         string
	Dir         string
	Posts       int
	Attachments int
}

// Render produces the index page HTML for the given classes
func Render(classes []ClassEntry, generated time.Time) (string, error) {
	rows := make([]map[string]interface{}, 0, len(classes))
	for _, c := range classes {
		rows = append(rows, map[string]interface{}{
			"name":        c.Name,
			"school":      c.School,
			"level":       c.Level,
			"key":         c.Key,
			"dir":         c.Dir,
			"posts":       c.Posts,
			"attachments": c.Attachments,
		})
	}

	out, err := mustache.Render(indexTemplate, map[string]interface{}{
		"generated": generated.Format("02-01-2006 15:04:05"),
		"classes":   rows,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render index: %w", err)
	}
	return out, nil
}

// Write renders the index page and writes it under baseDir as index.html
func Write(baseDir string, classes []ClassEntry) error {
	html, err := Render(classes, time.Now())
	if err != nil {
		return err
	}

	path := filepath.Join(baseDir, "index.html")
	if err := os.WriteFile(path, []byte(html), 0644); err != nil {
		return fmt.Errorf("failed to write index: %w", err)
	}
	return nil
}
