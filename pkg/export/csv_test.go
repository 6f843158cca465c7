package export_test

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/et-mohedano/demo-delegados/pkg/export"
	"github.com/et-mohedano/demo-delegados/pkg/report"
)

func TestWriteCSV(t *testing.T) {
	t.Parallel()

	created := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

	reports := []report.Report{
		{
			ID:                "r1",
			AuthorUsername:    "ana",
			AuthorDisplayName: "Ana",
			Region:            "Centro",
			Theme:             "Banquetas",
			Variable:          "Existencia",
			ConditionState:    "No hay",
			Comment:           "Comentario con, coma y \"comillas\"",
			Status:            report.StatusReported,
			Coordinate:        report.Coordinate{Lat: 19.4326, Lng: -99.1332},
			CreatedAt:         created,
		},
		{
			ID:             "r2",
			AuthorUsername: "bruno",
			Region:         "Norte",
			Theme:          "Alumbrado público",
			Variable:       "Funcionamiento",
			ConditionState: "Apagado",
			Status:         report.StatusResolved,
			Coordinate:     report.Coordinate{Lat: 19.5, Lng: -99.2},
			CreatedAt:      created.Add(time.Hour),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, export.WriteCSV(&buf, reports))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, export.Header, rows[0])

	assert.Equal(t, []string{
		"r1", "ana", "Ana", "Centro",
		"Banquetas", "Existencia", "No hay", "reported",
		"19.4326", "-99.1332",
		"Comentario con, coma y \"comillas\"",
		"2025-03-14T09:26:53Z",
	}, rows[1])

	assert.Equal(t, "r2", rows[2][0])
	assert.Equal(t, "resolved", rows[2][7])
	assert.Equal(t, "2025-03-14T10:26:53Z", rows[2][11])
}

func TestWriteCSV_Empty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, export.WriteCSV(&buf, nil))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1, "header only")
	assert.Equal(t, export.Header, rows[0])
}
