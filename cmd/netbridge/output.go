package main

import (
	"errors"
	"strings"

	"github.com/waftester/netbridge/pkg/defaults"
	"github.com/waftester/netbridge/pkg/exceptions"
	"github.com/waftester/netbridge/pkg/fault"
	"github.com/waftester/netbridge/pkg/ui"
)

// report prints a raised exception and returns the exit code for it.
func report(p *ui.Printer, err error) int {
	class, ok := exceptions.ClassOf(err)
	if !ok {
		p.Println(p.Render(ui.ClassStyle(exceptions.ClassUnknown), "error"), err.Error())
		return defaults.ExitInternalError
	}
	msg, _, _ := strings.Cut(err.Error(), "\n")
	p.Println(p.Render(ui.ClassStyle(class), class.String()), p.Render(ui.MessageStyle, msg))
	return exitCode(err, class)
}

// exitCode maps a class to the process exit code: network failures are 1,
// input the user can fix is 2, anything else is 3.
func exitCode(err error, class exceptions.Class) int {
	switch class {
	case exceptions.ClassHTTPMethodParse, exceptions.ClassURLParse, exceptions.ClassMIMEParse,
		exceptions.ClassBuilder, exceptions.ClassDNSResolver:
		return defaults.ExitUserError
	}
	if class.Network() {
		return defaults.ExitNetworkError
	}
	var f *fault.Fault
	if errors.As(err, &f) {
		switch f.Kind() {
		case fault.InvalidHeaderName, fault.InvalidHeaderValue:
			return defaults.ExitUserError
		}
	}
	return defaults.ExitInternalError
}

func printClasses(p *ui.Printer) {
	p.Println(p.Render(ui.TitleStyle, "Exception classes"))
	for _, c := range exceptions.Classes() {
		root := "Exception"
		switch exceptions.New(c, "").(type) {
		case exceptions.BaseError:
			root = "BaseError"
		case exceptions.Runtime:
			root = "RuntimeError"
		}
		if c == exceptions.ClassRuntime {
			root = "Exception"
		}
		p.Println(p.Render(ui.ClassStyle(c), c.String()), p.Render(ui.MessageStyle, root))
	}
}
