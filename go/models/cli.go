package models

import (
	"flag"
	"fmt"
	"io"
	"reflect"
	"strings"
)

// flagGroup is a set of flags bound to the same value.
type flagGroup struct {
	names []string
	*flag.Flag
}

func (g flagGroup) name() string {
	return strings.Join(g.names, ", -")
}

// groupFlags merges aliases (-depth and -d) into one entry, keeping the
// position of the first spelling seen. Longer names go first.
func groupFlags(flags []*flag.Flag) []flagGroup {
	var groups []flagGroup
	index := make(map[interface{}]int)
	for _, f := range flags {
		var key interface{} = f
		if v := reflect.ValueOf(f.Value); v.Kind() == reflect.Ptr {
			key = v.Pointer()
		}
		if i, ok := index[key]; ok {
			g := &groups[i]
			if len(f.Name) > len(g.names[0]) {
				g.names = append([]string{f.Name}, g.names...)
				g.Flag = f
			} else {
				g.names = append(g.names, f.Name)
			}
			continue
		}
		index[key] = len(groups)
		groups = append(groups, flagGroup{names: []string{f.Name}, Flag: f})
	}
	return groups
}

// PrintFlags renders flags as an aligned table, wrapping usage text at 80
// columns.
func PrintFlags(w io.Writer, flags []*flag.Flag) {
	groups := groupFlags(flags)
	wname := 0
	wdef := 0
	for _, g := range groups {
		if n := len(g.name()); n > wname {
			wname = n
		}
		if len(g.DefValue) > wdef {
			wdef = len(g.DefValue)
		}
	}
	wdesc := 80 - wname - wdef - 7
	if wdesc < 20 {
		wdesc = 20
	}

	namefmt := fmt.Sprintf("%%-%ds", wname)
	deffmt := fmt.Sprintf("%%-%ds ", wdef+2)
	lpad := strings.Repeat(" ", wname+wdef+7)
	for _, g := range groups {
		fmt.Fprintf(w, "  -"+namefmt, g.name())
		if g.DefValue != "" && g.DefValue != "[]" && g.DefValue != "false" {
			fmt.Fprintf(w, " "+deffmt, "("+g.DefValue+")")
		} else {
			fmt.Fprintf(w, " "+deffmt, "  ")
		}
		if g.Usage == "" {
			fmt.Fprintln(w)
		}
		for i := 0; i < len(g.Usage); {
			if i > 0 {
				fmt.Fprintf(w, "%s", lpad)
			}
			l := wdesc
			skip := false
			if i+wdesc > len(g.Usage) {
				l = len(g.Usage) - i
			} else {
				// split on newline or space if present
				s := strings.LastIndexAny(g.Usage[i:i+l], " \n")
				if s > 0 {
					l = s
					skip = true
				}
			}
			fmt.Fprintf(w, "%s\n", g.Usage[i:i+l])
			i += l
			if skip {
				i += 1
			}
		}
	}
}
