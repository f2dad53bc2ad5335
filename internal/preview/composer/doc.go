/*
Package composer builds the executable preview document.

Compose combines the three fragments into one standalone HTML document:

  - the stylesheet fragment inlined in a <style> element,
  - the markup fragment inlined in <body>,
  - the console shim in its own <script>, ahead of any user code,
  - the script fragment wrapped in a try/catch failure boundary.

The shim replaces window.console with wrappers that relay every call to the
parent context as {type: "console", method, args} through
window.parent.postMessage, then forward to the original console. Uncaught
errors that escape the boundary (syntax errors, timer callbacks) are reported
once through window.onerror.

Compose is pure: identical fragments always produce byte-identical output.
*/
package composer
