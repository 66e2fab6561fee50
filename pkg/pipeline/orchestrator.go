package pipeline

import "github.com/dukex/datapilot/pkg/models"

var routes = map[models.StageName]models.StageName{
	models.StageMemoryLoad: models.StageNLP,
	models.StageNLP:        models.StageDB,
	models.StageDB:         models.StageCSV,
	models.StageCSV:        models.StageReport,
	models.StageReport:     models.StageEmail,
	models.StageEmail:      models.StageMemorySave,
	models.StageMemorySave: models.StageTerminal,
}

// Next returns the stage that follows last. Unknown stages and the terminal
// route to the terminal.
func Next(last models.StageName) models.StageName {
	if next, ok := routes[last]; ok {
		return next
	}

	return models.StageTerminal
}
