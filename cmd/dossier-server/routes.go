package main

import (
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	"github.com/medplatform/dossier/internal/domain/access"
	"github.com/medplatform/dossier/internal/domain/audit"
	"github.com/medplatform/dossier/internal/domain/catalog"
	"github.com/medplatform/dossier/internal/domain/dossier"
	"github.com/medplatform/dossier/internal/domain/history"
	"github.com/medplatform/dossier/internal/domain/measurement"
	"github.com/medplatform/dossier/internal/domain/note"
	"github.com/medplatform/dossier/internal/domain/patient"
	"github.com/medplatform/dossier/internal/domain/treatment"
	"github.com/medplatform/dossier/internal/platform/db"
	"github.com/medplatform/dossier/internal/platform/metrics"
)

type routeRegistrar interface {
	RegisterRoutes(api *echo.Group)
}

// newHandlers builds every domain service over the pool and returns their
// HTTP handlers.
func newHandlers(pool *pgxpool.Pool, trail *audit.Trail, m *metrics.Metrics, dossierTimeout time.Duration) []routeRegistrar {
	tx := db.NewTxManager(pool)
	gate := access.NewGate(access.NewStore(pool), m)

	patients := patient.NewRepo(pool)
	histories := history.NewRepo(pool)
	treatments := treatment.NewRepo(pool)
	notes := note.NewRepo(pool)
	catalogSvc := catalog.NewService(catalog.NewRepo(pool))

	engine := dossier.NewEngine(dossier.Sources{
		Patients:   patients,
		History:    histories,
		Treatments: treatments,
		Notes:      notes,
		Records:    dossier.NewReader(pool),
	}, trail, m, dossierTimeout)

	return []routeRegistrar{
		dossier.NewHandler(engine),
		access.NewHandler(gate),
		audit.NewHandler(trail),
		catalog.NewHandler(catalogSvc),
		patient.NewHandler(patient.NewService(patients, gate, tx, trail)),
		history.NewHandler(history.NewService(histories, patients, gate, tx, trail)),
		treatment.NewHandler(treatment.NewService(treatments, patients, catalogSvc, gate, tx, trail)),
		note.NewHandler(note.NewService(notes, patients, gate, tx, trail)),
		measurement.NewHandler(measurement.NewService(measurement.NewRepo(pool), patients, gate, tx, trail, m)),
	}
}
