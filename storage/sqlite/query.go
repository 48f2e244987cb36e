package sqlite

import (
	"context"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"go.uber.org/zap"

	"github.com/caio-sobreiro/dicomweb/dicom"
	"github.com/caio-sobreiro/dicomweb/errors"
	"github.com/caio-sobreiro/dicomweb/query"
	"github.com/caio-sobreiro/dicomweb/types"
)

// Route identifiers are columns of the instance table.
var identifierColumns = map[types.TagPath]string{
	types.PathOf(dicom.TagStudyInstanceUID):  "m.study_instance_uid",
	types.PathOf(dicom.TagSeriesInstanceUID): "m.series_instance_uid",
	types.PathOf(dicom.TagSOPInstanceUID):    "m.sop_instance_uid",
}

// Query returns the latest indexed instance of every resource matching
// expr, in indexing order, paged by the expression's offset and limit.
func (s *Store) Query(ctx context.Context, expr *query.Expression) ([]types.InstanceIdentifier, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	stmt, args, err := s.buildQuery(expr)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Executing query", zap.String("sql", stmt), zap.Int("args", len(args)))

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query instances")
	}
	defer rows.Close()

	var ids []types.InstanceIdentifier
	for rows.Next() {
		var id types.InstanceIdentifier
		if err := rows.Scan(&id.StudyInstanceUID, &id.SeriesInstanceUID, &id.SOPInstanceUID, &id.Version); err != nil {
			return nil, errors.Wrap(err, "scan instance")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate instances")
	}
	return ids, nil
}

func (s *Store) buildQuery(expr *query.Expression) (string, []interface{}, error) {
	matches := sq.Select("MAX(m.instance_key)").
		From("instance m").
		GroupBy(groupColumns(expr.Level())...)
	for _, condition := range expr.Conditions() {
		predicate, err := conditionSQL(condition)
		if err != nil {
			return "", nil, err
		}
		matches = matches.Where(predicate)
	}
	sub, subArgs, err := matches.ToSql()
	if err != nil {
		return "", nil, errors.Wrap(err, "build match query")
	}

	stmt, args, err := s.sq.Select("i.study_instance_uid", "i.series_instance_uid", "i.sop_instance_uid", "i.version").
		From("instance i").
		Where("i.instance_key IN ("+sub+")", subArgs...).
		OrderBy("i.instance_key").
		Limit(uint64(expr.Limit())).
		Offset(uint64(expr.Offset())).
		ToSql()
	if err != nil {
		return "", nil, errors.Wrap(err, "build query")
	}
	return stmt, args, nil
}

func groupColumns(level types.ResourceLevel) []string {
	switch level {
	case types.LevelStudy:
		return []string{"m.study_instance_uid"}
	case types.LevelSeries:
		return []string{"m.study_instance_uid", "m.series_instance_uid"}
	default:
		return []string{"m.instance_key"}
	}
}

func conditionSQL(condition query.Condition) (sq.Sqlizer, error) {
	tag := condition.Tag()
	path := tag.Path.String()

	switch c := condition.(type) {
	case query.SingleValueMatch[string]:
		if column, ok := identifierColumns[tag.Path]; ok {
			return sq.Eq{column: c.Value()}, nil
		}
		if tag.VR != dicom.VR_UI && hasWildcard(c.Value()) {
			return attributeExists(path, `a.value_text LIKE ? ESCAPE '\'`, wildcardPattern(c.Value())), nil
		}
		return attributeExists(path, "a.value_text = ?", c.Value()), nil
	case query.SingleValueMatch[int64]:
		return attributeExists(path, "a.value_int = ?", c.Value()), nil
	case query.SingleValueMatch[float64]:
		return attributeExists(path, "a.value_real = ?", c.Value()), nil
	case query.SingleValueMatch[time.Time]:
		return attributeExists(path, "a.value_text = ?", c.Value().Format(storedTimeLayout)), nil
	case query.RangeMatch[time.Time]:
		return attributeExists(path, "a.value_text BETWEEN ? AND ?",
			c.Min().Format(storedTimeLayout), c.Max().Format(storedTimeLayout)), nil
	case query.RangeMatch[int64]:
		return attributeExists(path, "a.value_int BETWEEN ? AND ?", c.Min(), c.Max()), nil
	case query.FuzzyMatch:
		return fuzzySQL(path, c.Value()), nil
	default:
		return nil, errors.Newf("sqlite: unsupported condition %T on %s", condition, tag.Name())
	}
}

func attributeExists(path, predicate string, args ...interface{}) sq.Sqlizer {
	return sq.Expr(
		"EXISTS (SELECT 1 FROM instance_attribute a WHERE a.instance_key = m.instance_key AND a.tag_path = ? AND "+predicate+")",
		append([]interface{}{path}, args...)...,
	)
}

// fuzzySQL matches names in which every word of value starts a name
// component.
func fuzzySQL(path, value string) sq.Sqlizer {
	const name = `REPLACE(a.value_text, '^', ' ')`

	var predicates []string
	var args []interface{}
	for _, word := range strings.Fields(value) {
		predicates = append(predicates, "("+name+` LIKE ? ESCAPE '\' OR `+name+` LIKE ? ESCAPE '\')`)
		escaped := escapeLike(word)
		args = append(args, escaped+"%", "% "+escaped+"%")
	}
	return attributeExists(path, strings.Join(predicates, " AND "), args...)
}

func hasWildcard(value string) bool {
	return strings.ContainsAny(value, "*?")
}

// wildcardPattern turns DICOM wildcards into a LIKE pattern.
func wildcardPattern(value string) string {
	escaped := escapeLike(value)
	escaped = strings.ReplaceAll(escaped, "*", "%")
	return strings.ReplaceAll(escaped, "?", "_")
}

func escapeLike(value string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(value)
}
