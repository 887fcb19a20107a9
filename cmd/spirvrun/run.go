package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/spirvm/codec"
	"github.com/gogpu/spirvm/console"
	"github.com/gogpu/spirvm/idtable"
	"github.com/gogpu/spirvm/spv"
	"github.com/gogpu/spirvm/value"
	"github.com/gogpu/spirvm/vm"
)

func run(cmd *cobra.Command, opts *options, modulePath string) error {
	data, err := os.ReadFile(modulePath)
	if err != nil {
		return err
	}
	module, err := spv.Decode(data)
	if err != nil {
		return fmt.Errorf("decoding %s: %w", modulePath, err)
	}

	cons := console.New(cmd.ErrOrStderr(), opts.width)
	cons.SuppressWarnings = opts.quiet

	inputs, err := readInputDoc(opts.inputPath)
	if err != nil {
		return err
	}
	specConsts, err := decodeSpecConsts(inputs)
	if err != nil {
		return err
	}

	prog, err := vm.Load(module, cons, specConsts)
	if err != nil {
		return fmt.Errorf("loading %s: %w", modulePath, err)
	}
	ep, err := prog.EntryPoint(opts.entry)
	if err != nil {
		return err
	}

	bound := make(map[string]bool)
	for _, va := range prog.InputVariables(ep) {
		doc, ok := inputs[va.Name]
		if !ok {
			continue
		}
		if err := codec.DecodeInto(doc, va.InitValue(true)); err != nil {
			return fmt.Errorf("binding input %q: %w", va.Name, err)
		}
		bound[va.Name] = true
	}
	for name := range inputs {
		if !bound[name] && specConsts[name] == nil {
			cons.Warn(fmt.Sprintf("input %q does not name an interface variable of entry point %q", name, ep.Name))
		}
	}

	wg, err := prog.NewWorkgroup(ep, opts.invocations)
	if err != nil {
		return err
	}
	if err := wg.Run(); err != nil {
		return fmt.Errorf("executing %s: %w", ep.Name, err)
	}

	return writeOutputs(opts, prog, wg, ep)
}

// readInputDoc loads the input document; yaml.v3 also accepts JSON, so
// one decoder covers both formats.
func readInputDoc(path string) (map[string]any, error) {
	if path == "" {
		return map[string]any{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc := map[string]any{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return doc, nil
}

// decodeSpecConsts pre-decodes every scalar document entry so entries
// naming spec constants can override them at load time; entries that
// turn out to name input variables are simply never looked up.
func decodeSpecConsts(inputs map[string]any) (map[string]value.Value, error) {
	out := make(map[string]value.Value, len(inputs))
	for name, doc := range inputs {
		switch doc.(type) {
		case bool, int, int64, uint64, float64, float32:
			v, err := codec.Decode(doc)
			if err != nil {
				return nil, err
			}
			out[name] = v
		}
	}
	return out, nil
}

// writeOutputs serialises each output variable as one YAML document:
// the single invocation's value when one invocation ran, otherwise a
// per-invocation list.
func writeOutputs(opts *options, prog *vm.Program, wg *vm.Workgroup, ep *idtable.EntryPoint) error {
	doc := map[string]any{}
	invs := wg.Invocations()
	for _, va := range prog.OutputVariables(ep) {
		if len(invs) == 1 {
			out, err := invs[0].Variable(ep, va.Name)
			if err != nil {
				return err
			}
			doc[va.Name] = codec.Encode(out.InitValue(true))
			continue
		}
		perInv := make([]any, len(invs))
		for i, inv := range invs {
			out, err := inv.Variable(ep, va.Name)
			if err != nil {
				return err
			}
			perInv[i] = codec.Encode(out.InitValue(true))
		}
		doc[va.Name] = perInv
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	if opts.outputPath == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(opts.outputPath, data, 0o644)
}
