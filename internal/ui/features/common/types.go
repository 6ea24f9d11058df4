// Package common provides shared types and components for UI features.
package common

import "github.com/leapstack-labs/remarkql/internal/ui/notifier"

// PageData holds data needed for the page shell rendering.
type PageData struct {
	Title  string
	IsDev  bool
	Notice notifier.Notice
}

// GenericError is shown in place of a summary when an invocation fails for
// a reason the analyst cannot fix.
const GenericError = "Something went wrong. Please try again later."
