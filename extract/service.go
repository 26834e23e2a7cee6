package extract

import (
	"regexp"
	"strings"

	"github.com/hansjooseptammerik/logistics-automation-mvp/classify"
)

// Service tags.
const (
	ServiceTransport    = "Transport"
	ServiceInstallation = "Paigaldus"
	ServiceDisposal     = "Utiil"
)

// ServiceSeparator joins service tags.
const ServiceSeparator = " + "

var (
	disposalRe     = regexp.MustCompile(`\bUTIIL\b|\bUTILISEER`)
	installationRe = regexp.MustCompile(`\bPAIGALDUS\b|\bPAIGALDAMIN|\bMONTA[A-ZÕÄÖÜ]*\b|\bMONTEER[A-ZÕÄÖÜ]*\b`)
)

// ServiceTag classifies the services an order needs from the notes, the
// compact item text and the document text before the author block.
// Boilerplate after the author label never contributes.
func ServiceTag(notes, itemsCompact, text string) string {
	before, _, _ := strings.Cut(text, classify.AuthorLabel)
	hay := strings.ToUpper(strings.Join([]string{notes, itemsCompact, before}, "\n"))

	tags := []string{ServiceTransport}
	if installationRe.MatchString(hay) {
		tags = append(tags, ServiceInstallation)
	}
	if disposalRe.MatchString(hay) {
		tags = append(tags, ServiceDisposal)
	}
	return strings.Join(tags, ServiceSeparator)
}
