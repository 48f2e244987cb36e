package sqlite

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"

	"github.com/caio-sobreiro/dicomweb/dicom"
	"github.com/caio-sobreiro/dicomweb/errors"
	"github.com/caio-sobreiro/dicomweb/query"
	"github.com/caio-sobreiro/dicomweb/types"
)

var extendedTagColumns = []string{"tag_path", "vr", "keyword", "level", "status", "error_count", "private_creator"}

// GetQueryTags returns the core query tags followed by every registered
// extended query tag, whatever its status.
func (s *Store) GetQueryTags(ctx context.Context) ([]types.QueryTag, error) {
	extended, err := s.ListExtendedQueryTags(ctx)
	if err != nil {
		return nil, err
	}
	return append(query.CoreQueryTags(), extended...), nil
}

// ListExtendedQueryTags returns the registered extended query tags ordered
// by path.
func (s *Store) ListExtendedQueryTags(ctx context.Context) ([]types.QueryTag, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	stmt, args, err := s.sq.Select(extendedTagColumns...).
		From("extended_query_tag").
		OrderBy("tag_path").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build extended tag query")
	}

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query extended tags")
	}
	defer rows.Close()

	var tags []types.QueryTag
	for rows.Next() {
		tag, err := scanExtendedTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate extended tags")
	}
	return tags, nil
}

func scanExtendedTag(rows *sql.Rows) (types.QueryTag, error) {
	var (
		path, vr, keyword, level, status, creator string
		errorCount                                int
	)
	if err := rows.Scan(&path, &vr, &keyword, &level, &status, &errorCount, &creator); err != nil {
		return types.QueryTag{}, errors.Wrap(err, "scan extended tag")
	}

	tagPath, ok := types.ParseTagPath(path)
	if !ok {
		return types.QueryTag{}, errors.Newf("sqlite: invalid extended tag path %q", path)
	}
	resourceLevel, ok := types.ParseResourceLevel(level)
	if !ok {
		return types.QueryTag{}, errors.Newf("sqlite: invalid level %q for extended tag %s", level, path)
	}
	return types.QueryTag{
		Path:           tagPath,
		VR:             dicom.VR(vr),
		Keyword:        keyword,
		Level:          resourceLevel,
		Origin:         types.OriginExtended,
		Status:         types.ExtendedTagStatus(status),
		ErrorCount:     errorCount,
		PrivateCreator: creator,
	}, nil
}

// AddExtendedQueryTag registers an extended query tag. Attributes are
// indexed on ingestion whatever the catalog says, so new tags are usable
// once the instances they target are indexed.
func (s *Store) AddExtendedQueryTag(ctx context.Context, tag types.QueryTag) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	if !query.IsQueryableVR(tag.VR) {
		return errors.WithHint(errors.Newf("sqlite: VR %s of %s cannot be queried", tag.VR, tag.Path), "use a date, time, string or numeric attribute")
	}
	for _, core := range query.CoreQueryTags() {
		if core.Path == tag.Path {
			return errors.Newf("sqlite: %s is a core query tag", core.Name())
		}
	}
	if tag.Status == "" {
		tag.Status = types.StatusReady
	}

	stmt, args, err := s.sq.Insert("extended_query_tag").
		Columns(extendedTagColumns...).
		Values(tag.Path.String(), string(tag.VR), tag.Keyword, tag.Level.String(), string(tag.Status), tag.ErrorCount, tag.PrivateCreator).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "build extended tag insert")
	}
	if _, err := s.db.ExecContext(ctx, stmt, args...); err != nil {
		return errors.Wrapf(err, "insert extended tag %s", tag.Path)
	}
	return nil
}

// SetExtendedQueryTagStatus changes the status of a registered tag.
func (s *Store) SetExtendedQueryTagStatus(ctx context.Context, path types.TagPath, status types.ExtendedTagStatus) error {
	return s.updateExtendedTag(ctx, path, sq.Eq{"status": string(status)})
}

// SetExtendedQueryTagErrorCount records the number of indexing errors of a
// registered tag.
func (s *Store) SetExtendedQueryTagErrorCount(ctx context.Context, path types.TagPath, count int) error {
	return s.updateExtendedTag(ctx, path, sq.Eq{"error_count": count})
}

func (s *Store) updateExtendedTag(ctx context.Context, path types.TagPath, set sq.Eq) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	stmt, args, err := s.sq.Update("extended_query_tag").
		SetMap(set).
		Where(sq.Eq{"tag_path": path.String()}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "build extended tag update")
	}
	res, err := s.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return errors.Wrapf(err, "update extended tag %s", path)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if n == 0 {
		return errors.Wrapf(errors.ErrNotFound, "extended tag %s", path)
	}
	return nil
}
