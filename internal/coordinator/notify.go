package coordinator

import (
	"fmt"
	"io"
	"log/slog"
)

type Variant string

const (
	VariantDefault     Variant = "default"
	VariantDestructive Variant = "destructive"
)

// Toast is a user-visible notification.
type Toast struct {
	Title       string
	Description string
	Variant     Variant
}

type Notifier interface {
	Notify(Toast)
}

type NotifierFunc func(Toast)

func (f NotifierFunc) Notify(t Toast) { f(t) }

var (
	ToastPaymentInitiated = Toast{Title: "Payment initiated", Description: "Redirecting to payment provider...", Variant: VariantDefault}
	ToastPaymentFailed    = Toast{Title: "Payment failed", Description: "Unable to start payment. Please try again.", Variant: VariantDestructive}
	ToastLinkSent         = Toast{Title: "Payment link sent", Variant: VariantDefault}
	ToastLinkFailed       = Toast{Title: "Failed to send payment link", Description: "Please try again.", Variant: VariantDestructive}
	ToastProfileUpdated   = Toast{Title: "Profile updated", Description: "Your profile has been saved successfully.", Variant: VariantDefault}
	ToastProfileFailed    = Toast{Title: "Error updating profile", Description: "Please try again.", Variant: VariantDestructive}
	ToastSettingsUpdated  = Toast{Title: "Settings updated", Description: "Club settings have been saved successfully.", Variant: VariantDefault}
	ToastSettingsFailed   = Toast{Title: "Error updating settings", Description: "Please try again.", Variant: VariantDestructive}
	ToastRSVPFailed       = Toast{Title: "Error updating RSVP", Description: "Please try again.", Variant: VariantDestructive}
)

// WriterNotifier prints toasts as lines, e.g. to a terminal.
type WriterNotifier struct {
	Out io.Writer
}

func (n WriterNotifier) Notify(t Toast) {
	prefix := "✓"
	if t.Variant == VariantDestructive {
		prefix = "✗"
	}
	line := prefix + " " + t.Title
	if t.Description != "" {
		line += ": " + t.Description
	}
	if _, err := fmt.Fprintln(n.Out, line); err != nil {
		slog.Debug("Failed to print notification", "error", err)
	}
}
