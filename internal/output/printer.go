// Package output renders card data for the terminal (coloured), as JSON or as CBOR.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/gregLibert/sim-card/pkg/iso7816"
	"github.com/gregLibert/sim-card/pkg/sim"
	"github.com/gregLibert/sim-card/pkg/ts102221"
)

// Options selects the output form.
type Options struct {
	JSON    bool
	CBOR    bool
	NoColor bool
	Verbose bool
}

var (
	headerColor  = color.New(color.FgCyan, color.Bold)
	labelColor   = color.New(color.FgYellow)
	valueColor   = color.New(color.FgWhite)
	dimColor     = color.New(color.Faint)
	successColor = color.New(color.FgGreen)
	errorColor   = color.New(color.FgRed)
	warnColor    = color.New(color.FgYellow)
)

func printHeader(w io.Writer, title string) {
	headerColor.Fprintln(w, title)
	headerColor.Fprintln(w, strings.Repeat("─", 50))
}

func printSection(w io.Writer, title string) {
	fmt.Fprintln(w)
	headerColor.Fprintf(w, "┌ %s\n", title)
}

func printKV(w io.Writer, key, value string, indent int) {
	prefix := strings.Repeat("  ", indent)
	labelColor.Fprintf(w, "%s%s: ", prefix, key)
	valueColor.Fprintln(w, value)
}

// Readers

// BuildReadersJSON returns the JSON-serializable list of readers.
func BuildReadersJSON(readers []string) map[string]any {
	list := make([]map[string]any, 0, len(readers))
	for i, r := range readers {
		list = append(list, map[string]any{"index": i, "name": r})
	}
	return map[string]any{"readers": list}
}

// PrintReaders lists the readers with their index.
func PrintReaders(w io.Writer, readers []string, opts Options) error {
	if ok, err := Emit(w, BuildReadersJSON(readers), opts); ok {
		return err
	}

	if len(readers) == 0 {
		warnColor.Fprintln(w, "No smart card reader found.")
		return nil
	}
	for i, r := range readers {
		dimColor.Fprintf(w, "[%d] ", i)
		valueColor.Fprintln(w, r)
	}
	return nil
}

// File tree

// BuildTreeJSON returns d and its descendants as nested maps.
func BuildTreeJSON(d *sim.FileDescriptor) map[string]any {
	out := map[string]any{
		"name": d.Name(),
		"type": d.Type.String(),
		"fid":  fmt.Sprintf("%04X", d.FID),
	}
	if d.LongName != "" {
		out["description"] = d.LongName
	}
	if d.Type == sim.FileTypeADF {
		out["aid"] = fmt.Sprintf("%X", d.DFName)
	}
	if d.Type.IsEF() {
		out["structure"] = d.EFType.String()
	}
	if d.SFID != 0 {
		out["sfi"] = fmt.Sprintf("%02X", d.SFID)
	}
	if d.IsOptional() {
		out["optional"] = true
	}

	if children := d.Children(); len(children) > 0 {
		list := make([]map[string]any, 0, len(children))
		for _, c := range children {
			list = append(list, BuildTreeJSON(c))
		}
		out["children"] = list
	}
	return out
}

// PrintTree prints the file catalog of profile, one file per line.
func PrintTree(w io.Writer, profile *sim.Profile, opts Options) error {
	if ok, err := Emit(w, BuildTreeJSON(profile.Tree.Root()), opts); ok {
		return err
	}

	printHeader(w, profile.Name)
	return profile.Tree.Walk(func(d *sim.FileDescriptor, depth int) error {
		prefix := strings.Repeat("  ", depth)
		switch {
		case d.Type.IsDF():
			headerColor.Fprintf(w, "%s%s", prefix, d)
		default:
			valueColor.Fprintf(w, "%s%s", prefix, d)
		}

		var notes []string
		if d.Type.IsEF() {
			notes = append(notes, d.EFType.String())
		}
		if d.SFID != 0 {
			notes = append(notes, fmt.Sprintf("SFI %02X", d.SFID))
		}
		if d.IsOptional() {
			notes = append(notes, "optional")
		}
		if opts.Verbose && d.LongName != "" {
			notes = append(notes, d.LongName)
		}
		if len(notes) > 0 {
			dimColor.Fprintf(w, "  [%s]", strings.Join(notes, ", "))
		}
		fmt.Fprintln(w)
		return nil
	})
}

// FCP

// BuildFCPJSON returns the JSON-serializable form of fcp.
func BuildFCPJSON(fcp *iso7816.FileControlParameters) map[string]any {
	out := map[string]any{
		"descriptor": fcp.Descriptor.String(),
		"lifeCycle":  fcp.LifeCycle.String(),
	}
	if fcp.HasFileID {
		out["fileId"] = fmt.Sprintf("%04X", fcp.FileID)
	}
	if len(fcp.Template.DFName) > 0 {
		out["dfName"] = fmt.Sprintf("%X", fcp.Template.DFName)
	}
	if !fcp.IsDF() {
		out["fileSize"] = fcp.FileSize
		if fcp.Descriptor.Structure.IsRecord() {
			out["recordLength"] = fcp.Descriptor.RecordLength
			out["numberOfRecords"] = fcp.Descriptor.NumberOfRecords
		}
	}
	if fcp.TotalFileSize > 0 {
		out["totalFileSize"] = fcp.TotalFileSize
	}
	if fcp.HasSFI {
		out["sfi"] = fmt.Sprintf("%02X", fcp.SFI)
	}

	objects := make([]map[string]any, 0, len(fcp.Elements))
	for _, e := range fcp.Elements {
		o := map[string]any{"tag": e.Tag.String(), "value": fmt.Sprintf("%X", e.Value)}
		if e.Known {
			o["name"] = e.Name
		}
		objects = append(objects, o)
	}
	out["dataObjects"] = objects

	if unknown := fcp.Elements.Unknown(); len(unknown) > 0 {
		tags := make([]string, 0, len(unknown))
		for _, e := range unknown {
			tags = append(tags, e.Tag.String())
		}
		out["unknownTags"] = tags
	}
	return out
}

// PrintFCP prints the parameters returned when d was selected.
func PrintFCP(w io.Writer, d *sim.FileDescriptor, fcp *iso7816.FileControlParameters, opts Options) error {
	if fcp == nil {
		if ok, err := Emit(w, map[string]any{"file": d.String()}, opts); ok {
			return err
		}
		printHeader(w, d.String())
		dimColor.Fprintln(w, "(no FCP returned)")
		return nil
	}

	if ok, err := Emit(w, map[string]any{"file": d.String(), "fcp": BuildFCPJSON(fcp)}, opts); ok {
		return err
	}

	printHeader(w, d.String())
	if fcp.HasFileID {
		printKV(w, "File ID", fmt.Sprintf("%04X", fcp.FileID), 1)
	}
	if len(fcp.Template.DFName) > 0 {
		printKV(w, "DF Name", fmt.Sprintf("%X", fcp.Template.DFName), 1)
	}
	printKV(w, "Type", fcp.Descriptor.String(), 1)
	if !fcp.IsDF() {
		printKV(w, "Size", fmt.Sprintf("%d bytes", fcp.FileSize), 1)
	}
	if fcp.HasSFI {
		printKV(w, "SFI", fmt.Sprintf("%02X", fcp.SFI), 1)
	}
	printKV(w, "Life Cycle", fcp.LifeCycle.String(), 1)
	if unknown := fcp.Elements.Unknown(); len(unknown) > 0 {
		printKV(w, "Unknown", fmt.Sprintf("%d data object(s) outside TS 102.221", len(unknown)), 1)
	}

	if opts.Verbose {
		printSection(w, "Data objects")
		for _, e := range fcp.Elements {
			valueColor.Fprintf(w, "  - %s\n", e)
		}
	}
	return nil
}

// Decoded content

// BuildElementJSON returns the JSON-serializable form of e.
func BuildElementJSON(e sim.Element) map[string]any {
	m := e.Info()
	out := map[string]any{"name": m.Name, "kind": e.Kind().String()}
	if m.Length > 0 {
		out["length"] = m.Length
	}

	if g, ok := e.(sim.Group); ok {
		children := make([]map[string]any, 0, len(g.Elements))
		for _, c := range g.Elements {
			children = append(children, BuildElementJSON(c))
		}
		out["elements"] = children
		return out
	}
	if e.Kind() != sim.KindNone {
		out["value"] = sim.Format(e)
	}
	return out
}

// BuildFileJSON returns the raw and decoded content of f. A decoding failure is reported
// next to the raw bytes.
func BuildFileJSON(f *sim.File) map[string]any {
	out := map[string]any{
		"file": f.Desc.String(),
		"raw":  fmt.Sprintf("%X", f.Encoded),
	}
	if f.Record > 0 {
		out["record"] = f.Record
	}

	dd, err := f.Decode()
	if err != nil {
		out["error"] = err.Error()
		return out
	}
	elements := make([]map[string]any, 0, len(dd.Elements))
	for _, e := range dd.Elements {
		elements = append(elements, BuildElementJSON(e))
	}
	out["elements"] = elements
	return out
}

// PrintFiles prints the content of files read from one EF.
func PrintFiles(w io.Writer, files []*sim.File, opts Options) error {
	if opts.JSON || opts.CBOR {
		list := make([]map[string]any, 0, len(files))
		for _, f := range files {
			list = append(list, BuildFileJSON(f))
		}
		_, err := Emit(w, list, opts)
		return err
	}

	for _, f := range files {
		title := f.Desc.String()
		if f.Record > 0 {
			title = fmt.Sprintf("%s record %d", title, f.Record)
		}
		printHeader(w, title)
		if opts.Verbose {
			printKV(w, "Raw", fmt.Sprintf("%X", f.Encoded), 1)
		}

		dd, err := f.Decode()
		if err != nil {
			errorColor.Fprintf(w, "  ✗ %v\n", err)
			printKV(w, "Raw", fmt.Sprintf("%X", f.Encoded), 1)
			continue
		}
		for _, e := range dd.Elements {
			printElement(w, e, 1)
		}
		fmt.Fprintln(w)
	}
	return nil
}

func printElement(w io.Writer, e sim.Element, indent int) {
	if g, ok := e.(sim.Group); ok {
		labelColor.Fprintf(w, "%s%s:\n", strings.Repeat("  ", indent), g.Name)
		for _, c := range g.Elements {
			printElement(w, c, indent+1)
		}
		return
	}
	if e.Kind() == sim.KindNone {
		dimColor.Fprintf(w, "%s%s: (%d unused bytes)\n", strings.Repeat("  ", indent), e.Info().Name, e.Info().Length)
		return
	}
	printKV(w, e.Info().Name, sim.Format(e), indent)
}

// Applications

// BuildApplicationsJSON returns the applications listed in EF.DIR.
func BuildApplicationsJSON(apps []ts102221.ApplicationTemplate) map[string]any {
	list := make([]map[string]any, 0, len(apps))
	for _, a := range apps {
		entry := map[string]any{"aid": fmt.Sprintf("%X", a.AID)}
		if len(a.Label) > 0 {
			entry["label"] = string(a.Label)
		}
		list = append(list, entry)
	}
	return map[string]any{"applications": list}
}

// PrintApplications lists the applications found in EF.DIR.
func PrintApplications(w io.Writer, apps []ts102221.ApplicationTemplate, opts Options) error {
	if ok, err := Emit(w, BuildApplicationsJSON(apps), opts); ok {
		return err
	}

	printHeader(w, fmt.Sprintf("Applications (%d)", len(apps)))
	for i, a := range apps {
		dimColor.Fprintf(w, "  [%d] ", i+1)
		labelColor.Fprintf(w, "%X", a.AID)
		if len(a.Label) > 0 {
			valueColor.Fprintf(w, "  %s", a.Label)
		}
		fmt.Fprintln(w)
	}
	return nil
}

// Status words

// BuildClassificationJSON returns the JSON-serializable form of c.
func BuildClassificationJSON(c iso7816.Classification) map[string]any {
	out := map[string]any{
		"sw":    fmt.Sprintf("%04X", uint16(c.SW)),
		"class": c.Class.String(),
	}
	if c.Detail != "" {
		out["detail"] = c.Detail
	}
	if c.Unknown {
		out["unknown"] = true
	}
	return out
}

// PrintClassification prints the meaning of a status word.
func PrintClassification(w io.Writer, c iso7816.Classification, opts Options) error {
	if ok, err := Emit(w, BuildClassificationJSON(c), opts); ok {
		return err
	}

	var mark string
	switch c.Class {
	case iso7816.SWClassOK:
		mark = successColor.Sprint("✓")
	case iso7816.SWClassWarning, iso7816.SWClassPostponed:
		mark = warnColor.Sprint("⚠")
	default:
		mark = errorColor.Sprint("✗")
	}

	fmt.Fprintf(w, "%s %04X ", mark, uint16(c.SW))
	labelColor.Fprint(w, c.Class)
	switch {
	case c.Unknown:
		dimColor.Fprintln(w, " (not listed in the profile table)")
	case c.Detail != "":
		valueColor.Fprintf(w, "  %s\n", c.Detail)
	default:
		fmt.Fprintln(w)
	}
	return nil
}

// Exchanges

// BuildReportJSON returns every transaction of r and the classified outcome.
func BuildReportJSON(r *iso7816.Report) map[string]any {
	steps := make([]map[string]any, 0, len(r.Trace))
	for _, tx := range r.Trace {
		raw, _ := tx.Command.Bytes()
		step := map[string]any{
			"command": fmt.Sprintf("%X", raw),
			"sw":      fmt.Sprintf("%04X", uint16(tx.Response.Status)),
		}
		if len(tx.Response.Data) > 0 {
			step["data"] = fmt.Sprintf("%X", tx.Response.Data)
		}
		steps = append(steps, step)
	}

	out := map[string]any{
		"steps":   steps,
		"outcome": BuildClassificationJSON(r.Trace.Classify(r.Table)),
	}
	if data := r.Trace.Data(); len(data) > 0 {
		out["data"] = fmt.Sprintf("%X", data)
	}
	if resp, err := r.Select(); err == nil && resp.FCP != nil {
		out["fcp"] = BuildFCPJSON(resp.FCP)
	}
	return out
}

// PrintReport prints the report of one exchange.
func PrintReport(w io.Writer, r *iso7816.Report, opts Options) error {
	if ok, err := Emit(w, BuildReportJSON(r), opts); ok {
		return err
	}

	for _, line := range strings.Split(r.Describe(), "\n") {
		switch {
		case strings.HasPrefix(line, "==="), strings.HasPrefix(line, "["):
			headerColor.Fprintln(w, line)
		default:
			valueColor.Fprintln(w, line)
		}
	}
	return nil
}

// PrintError prints msg on w in the error colour.
func PrintError(w io.Writer, msg string) {
	errorColor.Fprintf(w, "Error: %s\n", msg)
}
