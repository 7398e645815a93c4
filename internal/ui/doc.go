// Package ui implements the interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI has two views:
//  1. [LoginView] : Username/password form, toggled into a registration form with ctrl+r
//  2. [HomeView] : Profile header and the latest videos, enter opens one in the browser
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// It never blocks on the network: every session or API call runs in a [tea.Cmd] and reports back with a message.
//
// [Program] bridges the session layer into the running TUI. It implements services.Notifier and session.Navigator,
// so client notifications land in the status line and the expiry hook sends the user back to [LoginView].
//
// A refresh ticker periodically asks the session to renew a token that is about to expire.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, r, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
