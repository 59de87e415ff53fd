package server

import (
	"encoding/json"
	"fmt"
	"html/template"

	"github.com/tarkov-dev/site/internal/mapview"
)

type mapPage struct {
	ID     string
	View   mapview.View
	Title  string
	Mount  string
	Scene  template.JS
	Height string
}

const notFoundTitle = "Map not found - " + mapview.SiteTitle

func newMapPage(id string, view mapview.View) (mapPage, error) {
	p := mapPage{ID: id, View: view, Title: notFoundTitle, Height: "auto"}
	if view.Meta != nil {
		p.Title = view.Meta.Title
	}
	if view.Viewport.Height > 0 {
		p.Height = fmt.Sprintf("%dpx", view.Viewport.Height)
	}
	if view.Scene != nil {
		data, err := json.Marshal(view.Scene)
		if err != nil {
			return mapPage{}, fmt.Errorf("encode scene: %w", err)
		}
		// json.Marshal escapes <, > and & so the document is safe inside a script element
		p.Scene = template.JS(data)
		p.Mount = view.Scene.Mount
	}
	return p, nil
}

var pageTemplate = template.Must(template.New("map").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
{{- with .View.Meta}}
<meta name="description" content="{{.Description}}">
<meta property="og:title" content="{{.Title}}">
<meta property="og:description" content="{{.Description}}">
{{- if .Image}}
<meta property="og:image" content="{{.Image}}">
<meta name="twitter:image" content="{{.Image}}">
{{- end}}
<meta name="twitter:card" content="{{.Card}}">
{{- end}}
</head>
<body>
{{- if eq .View.State.String "none"}}
<div class="page-wrapper error-page">
<h1>Map not found</h1>
<p>No map named "{{.ID}}" exists.</p>
</div>
{{- else}}
<div class="display-wrapper" style="height: {{.Height}}">
{{- with .View.Meta}}
<h1>{{.DisplayText}}</h1>
<ul class="map-info">
{{- if .Duration}}<li>Duration: {{.Duration}}</li>{{end}}
{{- if .Players}}<li>Players: {{.Players}}</li>{{end}}
{{- if .Author}}<li>By: {{if .AuthorLink}}<a href="{{.AuthorLink}}">{{.Author}}</a>{{else}}{{.Author}}{{end}}</li>{{end}}
</ul>
{{- end}}
{{- with .View.Static}}
<div class="map-image-wrapper" data-initial-scale="{{.InitialScale}}" data-wheel-step="{{.WheelStep}}">
<img src="{{.URL}}" alt="{{.Alt}}" loading="lazy">
</div>
{{- end}}
{{- if .Scene}}
<div id="{{.Mount}}" class="leaflet-map"></div>
<script type="application/json" id="map-scene">{{.Scene}}</script>
{{- end}}
</div>
{{- end}}
</body>
</html>
`))
