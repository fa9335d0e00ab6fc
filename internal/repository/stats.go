package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/vancomm/minesweeper-agent/internal/mines"
)

type RunStats struct {
	Width     int     `db:"width" json:"width"`
	Height    int     `db:"height" json:"height"`
	MineCount int     `db:"mine_count" json:"mine_count"`
	Games     int     `db:"games" json:"games"`
	Won       int     `db:"won" json:"won"`
	Lost      int     `db:"lost" json:"lost"`
	AvgMoves  float64 `db:"avg_moves" json:"avg_moves"`
	WinRate   float64 `db:"-" json:"win_rate"`
}

type StatsFilter struct {
	GameParams *mines.GameParams
}

func (f StatsFilter) WhereClause() (string, pgx.NamedArgs) {
	clauses := make([]string, 0)
	args := pgx.NamedArgs{}
	if f.GameParams != nil {
		clauses = append(
			clauses,
			"width = @width",
			"height = @height",
			"mine_count = @mineCount",
		)
		args["width"] = f.GameParams.Width
		args["height"] = f.GameParams.Height
		args["mineCount"] = f.GameParams.MineCount
	}
	return strings.Join(clauses, " AND "), args
}

func (q Queries) GetStats(ctx context.Context, filter StatsFilter) ([]RunStats, error) {
	query := `
	SELECT
		width,
		height,
		mine_count,
		count(*) games,
		count(*) FILTER (WHERE outcome = 'won') won,
		count(*) FILTER (WHERE outcome = 'lost') lost,
		avg(moves)::float8 avg_moves
	FROM agent_run
	`

	whereClause, args := filter.WhereClause()
	if whereClause != "" {
		query += " WHERE " + whereClause
	}

	query += " GROUP BY width, height, mine_count ORDER BY width, height, mine_count;"

	rows, err := q.db.Query(ctx, query, args)
	if err != nil {
		return nil, err
	}
	stats, err := pgx.CollectRows(rows, pgx.RowToStructByName[RunStats])
	if err != nil {
		return nil, err
	}
	for i := range stats {
		if stats[i].Games > 0 {
			stats[i].WinRate = float64(stats[i].Won) / float64(stats[i].Games)
		}
	}
	return stats, nil
}
