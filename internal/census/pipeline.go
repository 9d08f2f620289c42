package census

import (
	"context"
	"time"

	"census/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NameColumn is the API's geography name column
const NameColumn = "NAME"

// GetDecennialData runs the full decennial pipeline: build predicates, fetch
// the chunked table, sum the variable groups, derive geoids and project to
// [geoid, name, <group names>...].
//
// When StateID is empty it is taken from the first county id. Every failure
// is returned as a *StageError naming the stage that failed; no partial table
// is ever returned.
func (c *Client) GetDecennialData(ctx context.Context, req models.DecennialRequest) (*models.Table, error) {
	log := c.logger.With(
		zap.String("request_id", uuid.NewString()),
		zap.Int("year", req.Year),
		zap.String("geography", string(req.Geography)),
		zap.String("dataset", req.Dataset))
	start := time.Now()

	if err := req.Validate(); err != nil {
		return nil, NewStageError(StagePredicates, invalidArgument("%v", err))
	}
	stateID := req.StateID
	if stateID == "" && len(req.CountyIDs) > 0 {
		stateID = req.CountyIDs[0].State()
	}
	in, err := BuildInPredicates(req.Geography, req.CountyIDs, stateID)
	if err != nil {
		return nil, NewStageError(StagePredicates, err)
	}

	variables := append([]string{GeoIDColumn, NameColumn}, req.Groups.Codes()...)
	table, err := c.fetchTable(ctx, models.TableRequest{
		Variables:   variables,
		Year:        req.Year,
		For:         req.Geography.ForPredicate(),
		In:          in,
		DatasetPath: req.DatasetPath(),
	}, c.decennialTimeout, log)
	if err != nil {
		log.Warn("Decennial fetch failed", zap.Error(err))
		return nil, NewStageError(StageFetch, err)
	}

	table, err = AggregateGroups(req.Groups, table)
	if err != nil {
		return nil, NewStageError(StageAggregate, err)
	}

	table, err = DeriveGeoid(req.Geography, table)
	if err != nil {
		return nil, NewStageError(StageGeoid, err)
	}

	table, err = projectOutput(req.Groups, table)
	if err != nil {
		return nil, NewStageError(StageProject, err)
	}

	log.Info("Decennial data fetched",
		zap.Int("rows", table.NumRows()),
		zap.Int("columns", table.NumColumns()),
		zap.Duration("elapsed", time.Since(start)))
	return table, nil
}

// projectOutput renames NAME to name and keeps geoid, name and the group columns.
func projectOutput(groups models.VariableGroups, table *models.Table) (*models.Table, error) {
	out := table.Clone()
	if err := out.Rename(NameColumn, "name"); err != nil {
		return nil, malformed("%v", err)
	}
	projected, err := out.Project(append([]string{"geoid", "name"}, groups.Names()...))
	if err != nil {
		return nil, malformed("%v", err)
	}
	return projected, nil
}
