/*
Package templating renders formatted addresses through Go html/template
files.

Default inline and block templates are compiled into the binary. Files in the
"templates" subdirectory of the data directory are parsed after the defaults
and replace any template with the same name, so a deployment can restyle the
output without rebuilding. Templates are hot-reloaded with Refresh.

Full templates use the ".tmpl.html" suffix, partials ".part.html".
*/
package templating
