package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

type repoField struct {
	Struct   string `json:"struct"`
	Name     string `json:"name"`
	RepoType string `json:"repo_type"`
}

type methodStats struct {
	StructName              string   `json:"struct_name"`
	Method                  string   `json:"method"`
	File                    string   `json:"file"`
	Line                    int      `json:"line"`
	RepoWriteCalls          int      `json:"repo_write_calls"`
	RepoFieldsWritten       []string `json:"repo_fields_written"`
	AggregateCommandCalls   int      `json:"aggregate_command_calls"`
	AggregateCommandsCalled []string `json:"aggregate_commands_called"`
}

type boundaryReport struct {
	Dir                       string        `json:"dir"`
	RepoWriteCallsites        int           `json:"repo_write_callsites"`
	AggregateCommandCallsites int           `json:"aggregate_command_callsites"`
	MethodsWritingRepos       []methodStats `json:"methods_writing_repos"`
	Methods                   []methodStats `json:"methods"`
	RepoFieldInventory        []repoField   `json:"repo_field_inventory"`
}

type structFields struct {
	RepoFields      map[string]repoField
	AggregateFields map[string]string
}

// Repo methods that mutate rows or take row locks. Both belong inside aggregate transactions.
var repoWriteMethods = map[string]bool{
	"Create":          true,
	"ReplaceLines":    true,
	"UpdateStock":     true,
	"UpdateState":     true,
	"UpdateByVersion": true,
	"CreateRefund":    true,
	"SoftDelete":      true,
	"LockByID":        true,
	"LockByIDs":       true,
	"LockByUserID":    true,
}

var aggregateCommands = map[string]bool{
	"AddItem":          true,
	"UpdateQuantity":   true,
	"RemoveItem":       true,
	"Clear":            true,
	"PlaceOrder":       true,
	"TransitionStatus": true,
	"CancelOrder":      true,
	"ProcessPayment":   true,
	"RefundPayment":    true,
	"ReconcilePayment": true,
	"AdjustStock":      true,
}

func main() {
	dir := flag.String("dir", filepath.Join("internal", "http", "handlers"), "package directory to scan")
	strict := flag.Bool("strict", false, "exit non-zero when any repo write is found")
	flag.Parse()

	fset := token.NewFileSet()
	pkgs, err := parser.ParseDir(fset, *dir, func(fi os.FileInfo) bool {
		name := fi.Name()
		return strings.HasSuffix(name, ".go") && !strings.HasSuffix(name, "_test.go")
	}, 0)
	if err != nil {
		exitf("parse dir: %v", err)
	}
	if len(pkgs) == 0 {
		exitf("no Go package found in %s", *dir)
	}

	fieldsByStruct := map[string]structFields{}
	var methods []methodStats
	for _, pkg := range pkgs {
		for _, f := range pkg.Files {
			collectStructFields(f, fieldsByStruct)
		}
	}
	for _, pkg := range pkgs {
		for filePath, f := range pkg.Files {
			collectMethodStats(fset, f, filepath.ToSlash(filePath), fieldsByStruct, &methods)
		}
	}

	report := buildReport(*dir, fieldsByStruct, methods)
	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		exitf("marshal report: %v", err)
	}
	fmt.Println(string(out))

	if *strict && report.RepoWriteCallsites > 0 {
		exitf("%d repo write callsites outside aggregates", report.RepoWriteCallsites)
	}
}

func collectStructFields(file *ast.File, out map[string]structFields) {
	for _, decl := range file.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.TYPE {
			continue
		}
		for _, spec := range gd.Specs {
			ts, ok := spec.(*ast.TypeSpec)
			if !ok {
				continue
			}
			st, ok := ts.Type.(*ast.StructType)
			if !ok || st.Fields == nil {
				continue
			}
			sf := structFields{
				RepoFields:      map[string]repoField{},
				AggregateFields: map[string]string{},
			}
			for _, field := range st.Fields.List {
				sel, ok := field.Type.(*ast.SelectorExpr)
				if !ok {
					continue
				}
				pkgIdent, ok := sel.X.(*ast.Ident)
				if !ok {
					continue
				}
				typeName := sel.Sel.Name
				for _, n := range field.Names {
					switch {
					case pkgIdent.Name == "repos" && strings.HasSuffix(typeName, "Repo"):
						sf.RepoFields[n.Name] = repoField{Struct: ts.Name.Name, Name: n.Name, RepoType: typeName}
					case pkgIdent.Name == "domainagg" && strings.HasSuffix(typeName, "Aggregate"):
						sf.AggregateFields[n.Name] = typeName
					}
				}
			}
			if len(sf.RepoFields) > 0 || len(sf.AggregateFields) > 0 {
				out[ts.Name.Name] = sf
			}
		}
	}
}

func collectMethodStats(
	fset *token.FileSet,
	file *ast.File,
	relFile string,
	fieldsByStruct map[string]structFields,
	out *[]methodStats,
) {
	for _, decl := range file.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok || fd.Recv == nil || fd.Body == nil || len(fd.Recv.List) == 0 {
			continue
		}
		recvName, recvType := recvInfo(fd.Recv.List[0])
		if recvType == "" || recvName == "" {
			continue
		}
		sf, ok := fieldsByStruct[recvType]
		if !ok {
			continue
		}

		stats := methodStats{
			StructName: recvType,
			Method:     fd.Name.Name,
			File:       relFile,
			Line:       fset.Position(fd.Pos()).Line,
		}
		written := map[string]bool{}
		commands := map[string]bool{}

		ast.Inspect(fd.Body, func(n ast.Node) bool {
			call, ok := n.(*ast.CallExpr)
			if !ok {
				return true
			}
			fnSel, ok := call.Fun.(*ast.SelectorExpr)
			if !ok {
				return true
			}
			rcvSel, ok := fnSel.X.(*ast.SelectorExpr)
			if !ok {
				return true
			}
			baseIdent, ok := rcvSel.X.(*ast.Ident)
			if !ok || baseIdent.Name != recvName {
				return true
			}
			field := rcvSel.Sel.Name
			method := fnSel.Sel.Name

			if _, ok := sf.RepoFields[field]; ok && repoWriteMethods[method] {
				stats.RepoWriteCalls++
				written[field+"."+method] = true
				return true
			}
			if _, ok := sf.AggregateFields[field]; ok && aggregateCommands[method] {
				stats.AggregateCommandCalls++
				commands[method] = true
			}
			return true
		})

		stats.RepoFieldsWritten = sortedKeys(written)
		stats.AggregateCommandsCalled = sortedKeys(commands)
		*out = append(*out, stats)
	}
}

func buildReport(dir string, fieldsByStruct map[string]structFields, methods []methodStats) boundaryReport {
	sort.Slice(methods, func(i, j int) bool {
		if methods[i].File == methods[j].File {
			return methods[i].Line < methods[j].Line
		}
		return methods[i].File < methods[j].File
	})

	report := boundaryReport{Dir: filepath.ToSlash(dir), Methods: methods}
	for _, m := range methods {
		if m.RepoWriteCalls > 0 {
			report.RepoWriteCallsites += m.RepoWriteCalls
			report.MethodsWritingRepos = append(report.MethodsWritingRepos, m)
		}
		report.AggregateCommandCallsites += m.AggregateCommandCalls
	}

	for _, sf := range fieldsByStruct {
		for _, rf := range sf.RepoFields {
			report.RepoFieldInventory = append(report.RepoFieldInventory, rf)
		}
	}
	sort.Slice(report.RepoFieldInventory, func(i, j int) bool {
		a, b := report.RepoFieldInventory[i], report.RepoFieldInventory[j]
		if a.Struct == b.Struct {
			return a.Name < b.Name
		}
		return a.Struct < b.Struct
	})
	return report
}

func recvInfo(field *ast.Field) (string, string) {
	if field == nil || len(field.Names) == 0 {
		return "", ""
	}
	recvName := field.Names[0].Name
	switch t := field.Type.(type) {
	case *ast.StarExpr:
		if id, ok := t.X.(*ast.Ident); ok {
			return recvName, id.Name
		}
	case *ast.Ident:
		return recvName, t.Name
	}
	return "", ""
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
