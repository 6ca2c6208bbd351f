/*
Package addressing provides the data model behind locale-aware address
rendering: the closed set of address fields, structured address values,
per-country format definitions with their placeholder templates, locale
candidate matching and localized country names.

Format definitions ship as an embedded reference table and can be overridden
at runtime. Overrides are persisted in SQLite through Store and served from
memory by Overlay, so lookups made while rendering never touch the database.
*/
package addressing
