package routes

import (
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	controller "nurtureflow/controllers"
	"nurtureflow/nurture"
)

// The static /leads/export path must be registered ahead of the GET :id
// wildcard; Fiber matches in registration order, so the wrong order makes
// /leads/export resolve to the single-lead handler with id="export".
func TestLeadExportRegisteredBeforeWildcard(t *testing.T) {
	app := fiber.New()
	engine := nurture.NewExecutor(
		nurture.NewScorer(),
		nurture.NewScheduler(nurture.DefaultLibrary(), nil),
		nurture.NewSimulator(nil),
	)

	SetupAPIRoutes(app, nil, engine, controller.NewAlertHub())

	exportPos, wildcardPos := -1, -1
	for i, r := range app.GetRoutes() {
		if r.Method != fiber.MethodGet {
			continue
		}
		switch {
		case r.Path == "/api/v1/leads/export" && exportPos == -1:
			exportPos = i
		case r.Path == "/api/v1/leads/:id" && wildcardPos == -1:
			wildcardPos = i
		}
	}

	require.NotEqual(t, -1, exportPos, "export route not registered")
	require.NotEqual(t, -1, wildcardPos, "single-lead route not registered")
	require.Less(t, exportPos, wildcardPos)
}
