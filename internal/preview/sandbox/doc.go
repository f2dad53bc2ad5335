/*
Package sandbox mounts composed documents behind ephemeral handles and runs
them in isolation.

# Handles

Host.Mount always creates a fresh Handle for a document and releases the
previous one before returning, so at most one handle is live. A released
handle never serves its document again and its execution is interrupted.
Only the Host can release a handle.

# Execution

Browsers load a handle's document from the sandbox HTTP endpoint under an
opaque-origin content security policy. Each handle runs in exactly one
place, chosen at mount: while Config.Headless is set and no browser preview
is attached (Host.AttachPreview), the host executes the document headlessly;
otherwise the handle is a bridge handle and the browser is its only runtime.
Headless execution has these parts:

 1. Runtime: a fresh goja VM per handle, with require, process, module and
    exports removed
 2. DOM: the parsed document exposed through a small element API
 3. Bridge: window.parent.postMessage, the only path out of the VM, posting
    to the relay bus tagged with the handle
 4. Timers: setTimeout callbacks drained in due order after the scripts run,
    bounded by MaxTimers

Only the two scripts the composer emits run. Scripts inside the markup
fragment are inert.

# Limits

Each execution is bounded by Config.Timeout and Config.MaxCallStackSize.
Releasing the handle cancels its context, which interrupts the VM.
*/
package sandbox
