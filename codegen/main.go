package main

import (
	"fmt"
	"os"
	"strings"
)

const maxArity = 4

func generateDerive(n int) string {
	var sb strings.Builder

	typeParams := []string{"T any"}
	for i := 1; i <= n; i++ {
		typeParams = append(typeParams, fmt.Sprintf("D%d any", i))
	}

	inputParams := []string{}
	for i := 1; i <= n; i++ {
		inputParams = append(inputParams, fmt.Sprintf("d%d Derivable[D%d]", i, i))
	}

	fnParams := []string{}
	for i := 1; i <= n; i++ {
		fnParams = append(fnParams, fmt.Sprintf("D%d", i))
	}

	reads := []string{}
	for i := 1; i <= n; i++ {
		reads = append(reads, fmt.Sprintf(`v%d, err := d%d.Get()
		if err != nil {
			var zero T
			return zero, err
		}`, i, i))
	}

	values := []string{}
	for i := 1; i <= n; i++ {
		values = append(values, fmt.Sprintf("v%d", i))
	}

	sb.WriteString(fmt.Sprintf("// Derive%d derives from %d input(s). The first input that is errored\n", n, n))
	sb.WriteString("// or unresolved short-circuits fn.\n")
	sb.WriteString(fmt.Sprintf("func Derive%d[%s](\n", n, strings.Join(typeParams, ", ")))
	for _, p := range inputParams {
		sb.WriteString(fmt.Sprintf("\t%s,\n", p))
	}
	sb.WriteString(fmt.Sprintf("\tfn func(%s) (T, error),\n", strings.Join(fnParams, ", ")))
	sb.WriteString("\topts ...NodeOption,\n")
	sb.WriteString(") *Derivation[T] {\n")
	sb.WriteString("\treturn Derive(d1.Runtime(), func() (T, error) {\n")
	for _, r := range reads {
		sb.WriteString(fmt.Sprintf("\t\t%s\n", r))
	}
	sb.WriteString(fmt.Sprintf("\t\treturn fn(%s)\n", strings.Join(values, ", ")))
	sb.WriteString("\t}, opts...)\n")
	sb.WriteString("}\n\n")

	return sb.String()
}

func main() {
	var output strings.Builder

	for i := 1; i <= maxArity; i++ {
		output.WriteString(generateDerive(i))
	}

	fmt.Print(output.String())

	if len(os.Args) > 1 && os.Args[1] == "-w" {
		file, err := os.OpenFile("derive_generated.go", os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			panic(err)
		}
		defer file.Close()

		file.WriteString("package derivable\n\n")
		file.WriteString("//go:generate go run ./codegen -w\n\n")
		file.WriteString(output.String())
		fmt.Println("Generated derive_generated.go")
	}
}
