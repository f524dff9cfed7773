package reports

import (
	"html/template"
	"net/http"

	"github.com/rs/zerolog"
)

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
<h1>{{.Title}}</h1>
<form id="upload" enctype="multipart/form-data">
  <label>Upload your sales data CSV file <input type="file" name="file" accept=".csv,text/csv" required></label>
  <button type="submit">Generate PDF Report</button>
</form>
<p id="status"></p>
<a id="download" hidden>Download PDF Report</a>
<script>
document.getElementById("upload").addEventListener("submit", async (e) => {
  e.preventDefault();
  const status = document.getElementById("status");
  const link = document.getElementById("download");
  link.hidden = true;
  status.textContent = "Generating...";
  const resp = await fetch("{{.Endpoint}}", {method: "POST", body: new FormData(e.target)});
  const body = await resp.json();
  if (!resp.ok) {
    status.textContent = body.message;
    return;
  }
  status.textContent = body.insights.lines.join(" | ");
  link.href = body.download_url;
  link.download = body.file_name;
  link.hidden = false;
});
</script>
</body>
</html>
`))

// Index serves the upload page.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := indexTemplate.Execute(w, struct {
		Title    string
		Endpoint string
	}{
		Title:    "Sales Data Analysis Dashboard",
		Endpoint: "/api/v1/reports",
	})
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to render index page")
	}
}
