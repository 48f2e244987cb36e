package sqlite

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"go.uber.org/zap"

	"github.com/caio-sobreiro/dicomweb/dicom"
	"github.com/caio-sobreiro/dicomweb/errors"
	"github.com/caio-sobreiro/dicomweb/query"
	"github.com/caio-sobreiro/dicomweb/types"
)

// storedTimeLayout keeps DA and DT values sortable as text.
const storedTimeLayout = "20060102150405.000000"

const insertBatchSize = 200

type attributeRow struct {
	path    string
	text    sql.NullString
	integer sql.NullInt64
	float   sql.NullFloat64
}

// Index stores the queryable attributes of ds. Indexing the same instance
// again replaces its attributes and bumps its version.
func (s *Store) Index(ctx context.Context, ds *dicom.Dataset) (types.InstanceIdentifier, error) {
	if err := checkContext(ctx); err != nil {
		return types.InstanceIdentifier{}, err
	}

	id := types.InstanceIdentifier{
		StudyInstanceUID:  ds.GetString(dicom.TagStudyInstanceUID),
		SeriesInstanceUID: ds.GetString(dicom.TagSeriesInstanceUID),
		SOPInstanceUID:    ds.GetString(dicom.TagSOPInstanceUID),
	}
	for _, uid := range []struct{ name, value string }{
		{"StudyInstanceUID", id.StudyInstanceUID},
		{"SeriesInstanceUID", id.SeriesInstanceUID},
		{"SOPInstanceUID", id.SOPInstanceUID},
	} {
		if err := dicom.ValidateUID(uid.value); err != nil {
			return types.InstanceIdentifier{}, errors.NewInvalidIdentifierError(uid.name, uid.value, err.Error())
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return types.InstanceIdentifier{}, errors.Wrap(err, "begin index transaction")
	}
	defer rollback(tx)

	upsert, args, err := s.sq.Insert("instance").
		Columns("study_instance_uid", "series_instance_uid", "sop_instance_uid").
		Values(id.StudyInstanceUID, id.SeriesInstanceUID, id.SOPInstanceUID).
		Suffix("ON CONFLICT (study_instance_uid, series_instance_uid, sop_instance_uid) DO UPDATE SET version = version + 1 RETURNING instance_key, version").
		ToSql()
	if err != nil {
		return types.InstanceIdentifier{}, errors.Wrap(err, "build instance upsert")
	}
	var key int64
	if err := tx.QueryRowContext(ctx, upsert, args...).Scan(&key, &id.Version); err != nil {
		return types.InstanceIdentifier{}, errors.Wrap(err, "upsert instance")
	}

	del, args, err := s.sq.Delete("instance_attribute").Where(sq.Eq{"instance_key": key}).ToSql()
	if err != nil {
		return types.InstanceIdentifier{}, errors.Wrap(err, "build attribute delete")
	}
	if _, err := tx.ExecContext(ctx, del, args...); err != nil {
		return types.InstanceIdentifier{}, errors.Wrap(err, "delete previous attributes")
	}

	rows := attributeRows(ds)
	for start := 0; start < len(rows); start += insertBatchSize {
		end := min(start+insertBatchSize, len(rows))
		insert := s.sq.Insert("instance_attribute").
			Columns("instance_key", "tag_path", "value_text", "value_int", "value_real")
		for _, row := range rows[start:end] {
			insert = insert.Values(key, row.path, row.text, row.integer, row.float)
		}
		stmt, args, err := insert.ToSql()
		if err != nil {
			return types.InstanceIdentifier{}, errors.Wrap(err, "build attribute insert")
		}
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return types.InstanceIdentifier{}, errors.Wrap(err, "insert attributes")
		}
	}

	if err := tx.Commit(); err != nil {
		return types.InstanceIdentifier{}, errors.Wrap(err, "commit index transaction")
	}

	s.logger.Debug("Indexed instance",
		zap.String("study_instance_uid", id.StudyInstanceUID),
		zap.String("series_instance_uid", id.SeriesInstanceUID),
		zap.String("sop_instance_uid", id.SOPInstanceUID),
		zap.Int64("version", id.Version),
		zap.Int("attributes", len(rows)))
	return id, nil
}

// attributeRows flattens the top-level attributes of ds and the attributes
// of its sequence items. Values that cannot be parsed for their VR are
// skipped.
func attributeRows(ds *dicom.Dataset) []attributeRow {
	var rows []attributeRow
	for _, tag := range ds.Tags() {
		element := ds.Elements[tag]
		if element.VR != dicom.VR_SQ {
			rows = appendRows(rows, types.PathOf(tag), element)
			continue
		}
		for _, item := range ds.Items(tag) {
			for _, inner := range item.Tags() {
				innerElement := item.Elements[inner]
				if innerElement.VR == dicom.VR_SQ {
					continue
				}
				rows = appendRows(rows, types.TagPath{Sequence: tag, Tag: inner}, innerElement)
			}
		}
	}
	return rows
}

func appendRows(rows []attributeRow, path types.TagPath, element *dicom.Element) []attributeRow {
	if !query.IsQueryableVR(element.VR) {
		return rows
	}
	for _, raw := range element.Strings() {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if row, ok := indexValue(element.VR, raw); ok {
			row.path = path.String()
			rows = append(rows, row)
		}
	}
	return rows
}

func indexValue(vr dicom.VR, raw string) (attributeRow, bool) {
	var row attributeRow
	switch vr {
	case dicom.VR_DA:
		t, err := time.Parse(query.DateLayout, raw)
		if err != nil {
			return row, false
		}
		row.text = sql.NullString{String: t.Format(storedTimeLayout), Valid: true}
	case dicom.VR_DT:
		t, ok := query.ParseDateTime(raw)
		if !ok {
			return row, false
		}
		row.text = sql.NullString{String: t.Format(storedTimeLayout), Valid: true}
	case dicom.VR_TM:
		ticks, ok := query.ParseTicks(raw)
		if !ok {
			return row, false
		}
		row.integer = sql.NullInt64{Int64: ticks, Valid: true}
	case dicom.VR_SL, dicom.VR_SS, dicom.VR_UL, dicom.VR_US, dicom.VR_SV, dicom.VR_UV:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return row, false
		}
		row.integer = sql.NullInt64{Int64: n, Valid: true}
	case dicom.VR_FL, dicom.VR_FD:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return row, false
		}
		row.float = sql.NullFloat64{Float64: f, Valid: true}
	default:
		row.text = sql.NullString{String: raw, Valid: true}
	}
	return row, true
}
