package composer

// ShimVersion is bumped whenever the shim's wire output changes.
const ShimVersion = "2"

// Shim is the console instrumentation installed in every composed document.
//
// Display formatting happens on the host; the shim only decides the wire
// arguments: warn and error get a "Warning:"/"Error:" label prepended, table
// sends a "Table:" label plus the indented JSON dump, and every other argument
// is serialised (objects as indented JSON, errors as "Name: message",
// everything else through String).
const Shim = `(function () {
  var originalConsole = window.console || {};
  var formatValue = function (value) {
    if (value instanceof Error) {
      return String(value);
    }
    if (typeof value === 'object') {
      try {
        return JSON.stringify(value, null, 2);
      } catch (e) {
        return String(value);
      }
    }
    return String(value);
  };
  var format = function (args) {
    return Array.prototype.map.call(args, formatValue);
  };
  var relay = function (method, args) {
    window.parent.postMessage({ type: 'console', method: method, args: args }, '*');
  };
  var forward = function (method, args) {
    var fn = originalConsole[method];
    if (typeof fn === 'function') {
      fn.apply(originalConsole, args);
    }
  };
  var patched = {};
  for (var key in originalConsole) {
    patched[key] = originalConsole[key];
  }
  patched.log = function () {
    relay('log', format(arguments));
    forward('log', arguments);
  };
  patched.info = function () {
    relay('info', format(arguments));
    forward('info', arguments);
  };
  patched.debug = function () {
    relay('debug', format(arguments));
    forward('debug', arguments);
  };
  patched.warn = function () {
    relay('warn', ['Warning:'].concat(format(arguments)));
    forward('warn', arguments);
  };
  patched.error = function () {
    relay('error', ['Error:'].concat(format(arguments)));
    forward('error', arguments);
  };
  patched.table = function (data) {
    var dump;
    try {
      dump = JSON.stringify(data, null, 2);
    } catch (e) {
      dump = undefined;
    }
    relay('table', ['Table:', dump === undefined ? String(data) : dump]);
    forward('table', arguments);
  };
  window.console = patched;
  window.onerror = function (message, source, line, column, error) {
    window.console.error(error && error.message !== undefined ? error.message : String(message));
    return true;
  };
})();`

// boundaryCatch reports an error thrown by the script fragment through the
// relay and swallows it.
const boundaryCatch = `console.error(error && error.message !== undefined ? error.message : String(error));`
