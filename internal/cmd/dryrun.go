package cmd

import (
	"fmt"
	"io"
)

// DryRunPrinter helps format dry-run output consistently across commands.
type DryRunPrinter struct {
	w io.Writer
}

// NewDryRunPrinter creates a new DryRunPrinter that writes to the given writer.
func NewDryRunPrinter(w io.Writer) *DryRunPrinter {
	return &DryRunPrinter{w: w}
}

// Header prints the header line indicating the action that would be taken.
// Example: [DRY-RUN] Would delete asset users/name/dem
func (p *DryRunPrinter) Header(action, resourceType, id string) {
	_, _ = fmt.Fprintf(p.w, "[DRY-RUN] Would %s %s %s\n", action, resourceType, id)
}

// Field prints a single field with its value.
// Example:   Destination: users/name/dem_backup
func (p *DryRunPrinter) Field(name, value string) {
	_, _ = fmt.Fprintf(p.w, "  %s: %s\n", name, value)
}

// Section prints a section header.
func (p *DryRunPrinter) Section(title string) {
	_, _ = fmt.Fprintf(p.w, "\n%s\n", title)
}

// Footer prints the footer message indicating no changes were made.
func (p *DryRunPrinter) Footer() {
	_, _ = fmt.Fprintf(p.w, "\n[DRY-RUN] No changes made.\n")
}
