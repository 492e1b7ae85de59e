package entity

// definitions constrains every entry of the top-level "entities" struct.
// Defaults here are the library defaults.
const definitions = `
#Rule: {
	field:    string
	operator: *"eq" | "neq" | "in" | "not_in" | "truthy" | "falsy"
	value?:   _
	values?: [..._]
}

#Column: {
	field:      string
	label?:     string
	sortable:   bool | *true
	filterable: bool | *false
	width?:     string
	align?:     "left" | "right" | "center"
}

#Action: {
	id:               string
	label:            string
	variant:          *"default" | "primary" | "danger"
	kind:             string | *"status_change"
	field:            string | *"status"
	status?:          string
	confirm?:         string
	success_message?: string
}

#Table: {
	page_size:      (int & >=1 & <=100) | *25
	max_buttons:    (int & >=1) | *5
	equals_filters: [...string] | *["status"]
	default_sort?: {
		field:     string
		direction: *"asc" | "desc"
	}
	columns: [...#Column]
	visibility: {
		storage_key?:      string
		default_hidden:    [...string] | *[]
		user_configurable: bool | *true
	}
	bulk_actions: [...#Action] | *[]
	row_actions:  [...#Action] | *[]
}

#Option: {
	value: _
	label: string
}

#Field: {
	name:          string
	kind:          string | *"text"
	label?:        string
	help_text?:    string
	required:      bool | *false
	max_length?:   int & >=1
	rows?:         int & >=1
	min?:          number
	max?:          number
	options?: [...#Option]
	visible_when?: #Rule
	depends_on?: [...string]
	url?:          string
	endpoint?:     string
	keep_value:    bool | *false
	auto_select:   bool | *false
}

#Step: {
	id:           string
	title?:       string
	description?: string
	fields: [...string]
	schema?: {...}
	visible_when?: #Rule
}

#Form: {
	fields: [...#Field]
	steps: [...#Step] | *[]
	schema?: {...}
	disable_back: bool | *false
	debounce_ms:  (int & >=0) | *300
	endpoints: {[string]: string} | *{}
}

#Entity: {
	label?:  string
	plural?: string
	table:   #Table
	form?:   #Form
}
`
