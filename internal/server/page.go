package server

import (
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/doc-analyzer/internal/model"
)

type page struct {
	Providers []model.Provider
	Result    string
}

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Document Analyzer</title>
<style>
body { font-family: sans-serif; max-width: 48rem; margin: 2rem auto; }
fieldset { margin-bottom: 1rem; }
pre { white-space: pre-wrap; background: #f6f6f6; padding: 1rem; }
</style>
</head>
<body>
<h1>Document Analyzer</h1>
<form method="post" action="/analyze" enctype="multipart/form-data">
  <fieldset>
    <legend>PDF</legend>
    <input type="file" name="file" accept="application/pdf" required>
  </fieldset>
  <fieldset>
    <legend>Analysis</legend>
    <label><input type="radio" name="variant" value="document" checked> Document summary</label>
    <label><input type="radio" name="variant" value="fee"> Fee scenarios</label>
  </fieldset>
  <fieldset>
    <legend>Provider (fee scenarios)</legend>
    {{range $i, $p := .Providers}}<label><input type="radio" name="provider" value="{{$p}}"{{if eq $i 0}} checked{{end}}> {{$p}}</label>
    {{end}}
  </fieldset>
  <button type="submit">Analyze</button>
</form>
{{if .Result}}<h2>Result</h2>
<pre>{{.Result}}</pre>{{end}}
</body>
</html>
`))

func render(w http.ResponseWriter, status int, p page) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTmpl.Execute(w, p); err != nil {
		zap.L().Error("server: render page", zap.Error(err))
	}
}
