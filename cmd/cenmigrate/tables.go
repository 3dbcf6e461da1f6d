package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/enerdata/cenmigrate/internal/schema"
	_ "github.com/enerdata/cenmigrate/internal/schema/tables" // register datasets
)

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List the known datasets and their column mappings",
	Run: func(cmd *cobra.Command, args []string) {
		for _, t := range schema.All() {
			fmt.Printf("%s  (%s, source dir %q)\n", t.Key, t.Label, t.Directory)
			dbCols := t.DBColumns()
			for i, f := range t.Fields {
				var marks []string
				if f.Required {
					marks = append(marks, "required")
				}
				if f.KeyPart {
					marks = append(marks, "key")
				}
				suffix := ""
				if len(marks) > 0 {
					suffix = "  [" + strings.Join(marks, ", ") + "]"
				}
				fmt.Printf("    %-20s -> %s%s\n", f.Column, dbCols[i], suffix)
			}
			for _, d := range t.Derived {
				fmt.Printf("    %-20s -> %s  [derived]\n", "(computed)", d.DBColumn)
			}
			fmt.Println()
		}
	},
}

func init() {
	rootCmd.AddCommand(tablesCmd)
}
