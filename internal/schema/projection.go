package schema

// Projection metadata: the full eligible select of an entity, used by the
// "show all except these" compilation mode. Relation entries always include
// an identifying sub-select so rows stay linkable even when the caller
// never asked for relation columns.

// relationIdentifiers are the columns always carried for a joined relation.
var relationIdentifiers = []string{"id", "name"}

// FullProjection returns the dotted-path projection covering every scalar
// column of the entity plus identifying columns of each forward relation.
func FullProjection(e *Entity) []string {
	paths := make([]string, 0, len(e.Columns)+len(e.Relations)*len(relationIdentifiers))
	for _, c := range e.Columns {
		paths = append(paths, c.Name)
	}
	for _, rel := range e.Relations {
		if rel.Many {
			paths = append(paths, rel.Name)
			continue
		}
		for _, ident := range relationIdentifiers {
			paths = append(paths, rel.Name+"."+ident)
		}
	}
	return paths
}

// DefaultViewColumns is the column set seeded into a lazily created default
// view: every scalar column except foreign keys, plus relation names.
func DefaultViewColumns(e *Entity) []string {
	fks := make(map[string]struct{}, len(e.Relations))
	for _, rel := range e.Relations {
		if rel.ForeignKey != "" {
			for _, c := range e.Columns {
				if c.SQLName == rel.ForeignKey {
					fks[c.Name] = struct{}{}
				}
			}
		}
	}

	columns := make([]string, 0, len(e.Columns))
	for _, c := range e.Columns {
		if _, skip := fks[c.Name]; skip {
			continue
		}
		columns = append(columns, c.Name)
	}
	for _, rel := range e.Relations {
		if rel.Many {
			columns = append(columns, rel.Name)
		} else {
			columns = append(columns, rel.Name+".name")
		}
	}
	return columns
}
