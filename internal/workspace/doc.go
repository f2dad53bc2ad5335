/*
Package workspace owns the single project and its change/save cycle.

A Controller runs one event loop goroutine. Edits, timer fires, manual saves,
title changes and console clears are requests to that loop, so project state
is never shared.

	loading --Start--> clean --edit--> dirty --timer/Save--> saving --ok--> clean
	                                     ^                        |
	                                     +--------failure---------+

A successful save recomposes the document from the current fragments and
mounts it in the sandbox; the previous handle is released by the host.
*/
package workspace
