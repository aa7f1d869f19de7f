package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/albertocavalcante/gitmeta/cmd/gitmeta/internal/metastore"
	"github.com/albertocavalcante/gitmeta/pkg/output"
)

var showFlags struct {
	format string
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the records of the store",
	Long: `Decodes the store file and prints its records.

The table format shows paths escaped as they are stored; json and yaml
show them as plain strings.`,
	RunE: runShow,
}

func init() {
	showCmd.Flags().StringVarP(&showFlags.format, "format", "o", "table",
		"Output format (table, json, yaml)")

	rootCmd.AddCommand(showCmd)
}

// storeView is the printable form of a store.
type storeView struct {
	Version string       `json:"version" yaml:"version"`
	Fields  []string     `json:"fields" yaml:"fields"`
	Records []recordView `json:"records" yaml:"records"`

	columns []metastore.Field
	rows    [][]string
}

type recordView struct {
	File  string `json:"file" yaml:"file"`
	Type  string `json:"type" yaml:"type"`
	Mtime string `json:"mtime,omitempty" yaml:"mtime,omitempty"`
	Atime string `json:"atime,omitempty" yaml:"atime,omitempty"`
	Mode  string `json:"mode,omitempty" yaml:"mode,omitempty"`
	UID   *int   `json:"uid,omitempty" yaml:"uid,omitempty"`
	GID   *int   `json:"gid,omitempty" yaml:"gid,omitempty"`
	User  string `json:"user,omitempty" yaml:"user,omitempty"`
	Group string `json:"group,omitempty" yaml:"group,omitempty"`
	ACL   string `json:"acl,omitempty" yaml:"acl,omitempty"`
}

func (v *storeView) Headers() []string {
	headers := make([]string, len(v.columns))
	for i, f := range v.columns {
		headers[i] = strings.ToUpper(string(f))
	}
	return headers
}

func (v *storeView) Rows() [][]string {
	return v.rows
}

// newStoreView keeps only the fields the store declares.
func newStoreView(c *metastore.Contents) *storeView {
	v := &storeView{
		Version: c.Version,
		Records: make([]recordView, 0, len(c.Records)),
		columns: c.Fields.Columns(),
	}
	for _, f := range c.Fields {
		v.Fields = append(v.Fields, string(f))
	}

	for _, r := range c.Records {
		row := make([]string, len(v.columns))
		for i, f := range v.columns {
			row[i] = r.Value(f)
		}
		v.rows = append(v.rows, row)

		rv := recordView{File: r.Path, Type: r.Type.String()}
		for _, f := range v.columns {
			switch f {
			case metastore.FieldMtime:
				rv.Mtime = r.Value(f)
			case metastore.FieldAtime:
				rv.Atime = r.Value(f)
			case metastore.FieldMode:
				rv.Mode = r.Value(f)
			case metastore.FieldUID:
				uid := r.UID
				rv.UID = &uid
			case metastore.FieldGID:
				gid := r.GID
				rv.GID = &gid
			case metastore.FieldUser:
				rv.User = r.User
			case metastore.FieldGroup:
				rv.Group = r.Group
			case metastore.FieldACL:
				rv.ACL = r.ACL
			}
		}
		v.Records = append(v.Records, rv)
	}
	return v
}

func runShow(cmd *cobra.Command, _ []string) error {
	format, err := output.ParseFormat(showFlags.format)
	if err != nil {
		return err
	}
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	contents, err := metastore.ReadStore(s.store, metastore.ApplyVersions)
	if err != nil {
		return err
	}
	return output.Print(cmd.OutOrStdout(), format, newStoreView(contents))
}
