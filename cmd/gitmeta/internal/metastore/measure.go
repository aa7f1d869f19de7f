package metastore

import (
	"io/fs"

	"github.com/albertocavalcante/gitmeta/cmd/gitmeta/internal/attr"
)

// typeOf maps a file mode to a record type. ok is false for sockets,
// devices, pipes and other kinds the store does not track.
func typeOf(m fs.FileMode) (t FileType, ok bool) {
	switch {
	case m.IsRegular():
		return TypeFile, true
	case m&fs.ModeSymlink != 0:
		return TypeLink, true
	case m.IsDir():
		return TypeDir, true
	}
	return 0, false
}

// measure builds a fresh record for rel holding fields. It returns nil when
// the path is excluded: the store itself, a vanished path, an unsupported
// type, or a directory while the directory field is off.
func (e *Engine) measure(rel string, fields Fields) *Record {
	if rel == e.self {
		return nil
	}
	info, err := e.sys.Lstat(e.abs(rel))
	if err != nil {
		e.logger.Debug("skipping path", "path", rel, "reason", err)
		return nil
	}
	typ, ok := typeOf(info.Mode)
	if !ok {
		e.logger.Debug("skipping path", "path", rel, "reason", "unsupported file type", "mode", info.Mode.String())
		return nil
	}
	if typ == TypeDir && !fields.Has(FieldDirectory) {
		return nil
	}

	r := &Record{Path: rel, Type: typ}
	for _, f := range fields.Columns() {
		switch f {
		case FieldMtime:
			r.Mtime = info.Mtime.Unix()
		case FieldAtime:
			r.Atime = info.Atime.Unix()
		case FieldMode:
			if typ == TypeLink {
				r.Mode = linkMode
			} else {
				r.Mode = attr.PermBits(info.Mode)
			}
		case FieldUID:
			r.UID = info.UID
		case FieldGID:
			r.GID = info.GID
		case FieldUser:
			if name, err := e.sys.UserName(info.UID); err == nil {
				r.User = name
			}
		case FieldGroup:
			if name, err := e.sys.GroupName(info.GID); err == nil {
				r.Group = name
			}
		case FieldACL:
			if typ != TypeLink {
				r.ACL = e.readACL(rel)
			}
		}
	}
	return r
}

// readACL returns the ACL of rel, or "" when it cannot be read. Only the
// first failure of a run is a warning.
func (e *Engine) readACL(rel string) string {
	acl, err := e.sys.GetACL(e.abs(rel))
	if err == nil {
		return acl
	}
	if !e.aclWarned {
		e.aclWarned = true
		e.logger.Warn("cannot read ACLs, recording them as empty", "path", rel, "error", err)
	} else {
		e.logger.Debug("cannot read ACL", "path", rel, "error", err)
	}
	return ""
}
