package server

import (
	"embed"
	"html/template"
	"strconv"

	aggregatedomain "github.com/smallbiznis/gamepasses/internal/aggregate/domain"
	gamepassdomain "github.com/smallbiznis/gamepasses/internal/gamepass/domain"
)

const gamepassesTemplate = "gamepasses.html"

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplates = template.Must(template.New("").ParseFS(templateFS, "templates/*.html"))

type gamepassesPage struct {
	UserID int64
	Rows   []gamepassRow
}

type gamepassRow struct {
	UniverseID int64
	PassID     string
	Name       string
	Price      string
	Link       string
}

func newGamepassesPage(res *aggregatedomain.Result) gamepassesPage {
	page := gamepassesPage{
		UserID: res.UserID,
		Rows:   make([]gamepassRow, 0, len(res.Passes)),
	}
	for _, rec := range res.Passes {
		page.Rows = append(page.Rows, newGamepassRow(rec))
	}
	return page
}

func newGamepassRow(rec gamepassdomain.Record) gamepassRow {
	row := gamepassRow{UniverseID: int64(rec.UniverseID)}
	if rec.ID != nil {
		row.PassID = strconv.FormatInt(*rec.ID, 10)
	}
	if rec.Name != nil {
		row.Name = *rec.Name
	}
	if rec.Error != "" {
		row.Name = rec.Error
	}
	if rec.Price != nil {
		row.Price = strconv.FormatFloat(*rec.Price, 'f', -1, 64)
	}
	if rec.Link != nil {
		row.Link = *rec.Link
	}
	return row
}
