package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/opsconductor/toolengine/internal/types"
)

// ToolSpecDAO provides database access for tool catalog entries
type ToolSpecDAO struct {
	db *DB
}

// NewToolSpecDAO creates a new ToolSpecDAO instance
func NewToolSpecDAO(db *DB) *ToolSpecDAO {
	return &ToolSpecDAO{db: db}
}

// Upsert inserts or replaces a tool spec row. When the spec is marked
// latest, any previous latest row in the same name lineage is demoted so
// the one-latest-per-name invariant holds.
func (dao *ToolSpecDAO) Upsert(ctx context.Context, spec types.ToolSpec) error {
	if err := spec.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	parametersJSON, err := json.Marshal(spec.Parameters)
	if err != nil {
		return fmt.Errorf("failed to marshal parameters: %w", err)
	}

	capabilitiesJSON, err := json.Marshal(spec.Capabilities)
	if err != nil {
		return fmt.Errorf("failed to marshal capabilities: %w", err)
	}

	return dao.db.WithTx(ctx, func(tx *sql.Tx) error {
		if spec.IsLatest {
			if _, err := tx.ExecContext(ctx,
				"UPDATE tool_specs SET is_latest = 0 WHERE name = ? AND version != ?",
				spec.Name, spec.Version); err != nil {
				return fmt.Errorf("failed to demote previous latest: %w", err)
			}
		}

		query := `
			INSERT OR REPLACE INTO tool_specs (
				name, version, is_latest, platform, category, description,
				parameters, command_template, capabilities,
				requires_approval, production_safe, max_cost,
				time_estimate_ms, cost_estimate
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`

		_, err := tx.ExecContext(ctx, query,
			spec.Name,
			spec.Version,
			spec.IsLatest,
			string(spec.Platform),
			spec.Category,
			spec.Description,
			string(parametersJSON),
			spec.CommandTemplate,
			string(capabilitiesJSON),
			spec.RequiresApproval,
			spec.ProductionSafe,
			spec.MaxCost,
			spec.TimeEstimateMS,
			spec.CostEstimate,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert tool spec: %w", err)
		}
		return nil
	})
}

// ListAll returns every tool spec row ordered by name then version.
func (dao *ToolSpecDAO) ListAll(ctx context.Context) ([]types.ToolSpec, error) {
	query := `
		SELECT name, version, is_latest, platform, category, description,
		       parameters, command_template, capabilities,
		       requires_approval, production_safe, max_cost,
		       time_estimate_ms, cost_estimate
		FROM tool_specs
		ORDER BY name, version
	`

	rows, err := dao.db.QueryContext(ctx, query)
	if err != nil {
		return nil, types.WrapError(types.DB_QUERY_FAILED, "failed to list tool specs", err)
	}
	defer rows.Close()

	var specs []types.ToolSpec
	for rows.Next() {
		spec, err := scanToolSpec(rows)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}

	if err := rows.Err(); err != nil {
		return nil, types.WrapError(types.DB_QUERY_FAILED, "failed to iterate tool specs", err)
	}

	return specs, nil
}

// DeleteAll removes every catalog row. Used when re-seeding the database
// catalog from an authoritative file source.
func (dao *ToolSpecDAO) DeleteAll(ctx context.Context) error {
	if _, err := dao.db.ExecContext(ctx, "DELETE FROM tool_specs"); err != nil {
		return types.WrapError(types.DB_QUERY_FAILED, "failed to clear tool specs", err)
	}
	return nil
}

// scanToolSpec maps one result row onto a ToolSpec.
func scanToolSpec(rows *sql.Rows) (types.ToolSpec, error) {
	var (
		spec             types.ToolSpec
		platform         string
		parametersJSON   string
		capabilitiesJSON string
	)

	err := rows.Scan(
		&spec.Name,
		&spec.Version,
		&spec.IsLatest,
		&platform,
		&spec.Category,
		&spec.Description,
		&parametersJSON,
		&spec.CommandTemplate,
		&capabilitiesJSON,
		&spec.RequiresApproval,
		&spec.ProductionSafe,
		&spec.MaxCost,
		&spec.TimeEstimateMS,
		&spec.CostEstimate,
	)
	if err != nil {
		return types.ToolSpec{}, types.WrapError(types.DB_QUERY_FAILED, "failed to scan tool spec", err)
	}

	spec.Platform = types.Platform(platform)

	if err := json.Unmarshal([]byte(parametersJSON), &spec.Parameters); err != nil {
		return types.ToolSpec{}, fmt.Errorf("failed to unmarshal parameters for %s: %w", spec.Name, err)
	}
	if err := json.Unmarshal([]byte(capabilitiesJSON), &spec.Capabilities); err != nil {
		return types.ToolSpec{}, fmt.Errorf("failed to unmarshal capabilities for %s: %w", spec.Name, err)
	}

	return spec, nil
}
