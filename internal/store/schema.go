package store

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

const (
	itemsTable     = "items"
	sessionsTable  = "sessions"
	responsesTable = "responses"
	llmEventsTable = "llm_request_events"
	sequenceTable  = "global_sequence"
)

// textSize forces an unbounded text column on dialects that distinguish
// varchar from text.
const textSize = 2147483647

var (
	// ItemsColumns holds the columns for the "items" table.
	ItemsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "stem", Type: field.TypeString, Size: textSize},
		{Name: "passage", Type: field.TypeString, Size: textSize, Default: ""},
		{Name: "options", Type: field.TypeJSON},
		{Name: "correct_answer", Type: field.TypeString},
		{Name: "domain", Type: field.TypeString},
		{Name: "skill_tag", Type: field.TypeString, Default: ""},
		{Name: "stage", Type: field.TypeInt},
		{Name: "panel", Type: field.TypeString},
		{Name: "form_id", Type: field.TypeInt, Default: 1},
		{Name: "discrimination", Type: field.TypeFloat64},
		{Name: "difficulty", Type: field.TypeFloat64},
		{Name: "guessing", Type: field.TypeFloat64, Default: 0},
		{Name: "exposure_count", Type: field.TypeInt, Default: 0},
		{Name: "status", Type: field.TypeString, Default: ItemStatusActive},
		{Name: "is_pseudoword", Type: field.TypeBool, Default: false},
		{Name: "frequency_band", Type: field.TypeString, Default: ""},
		{Name: "band_size", Type: field.TypeInt, Default: 0},
		{Name: "source", Type: field.TypeString, Default: "manual"},
		{Name: "created_at", Type: field.TypeTime},
	}
	// ItemsTable holds the schema information for the "items" table.
	ItemsTable = &schema.Table{
		Name:       itemsTable,
		Columns:    ItemsColumns,
		PrimaryKey: []*schema.Column{ItemsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "item_stage_panel_form_id",
				Unique:  false,
				Columns: []*schema.Column{ItemsColumns[7], ItemsColumns[8], ItemsColumns[9]},
			},
			{
				Name:    "item_domain",
				Unique:  false,
				Columns: []*schema.Column{ItemsColumns[5]},
			},
		},
	}

	// SessionsColumns holds the columns for the "sessions" table.
	SessionsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "user_id", Type: field.TypeString},
		{Name: "status", Type: field.TypeString, Default: SessionInProgress},
		{Name: "form_id", Type: field.TypeInt, Default: 1},
		{Name: "stage", Type: field.TypeInt, Default: 1},
		{Name: "panel", Type: field.TypeString},
		{Name: "stage2_panel", Type: field.TypeString, Default: ""},
		{Name: "items_in_stage", Type: field.TypeInt, Default: 0},
		{Name: "items_completed", Type: field.TypeInt, Default: 0},
		{Name: "current_theta", Type: field.TypeFloat64, Default: 0},
		{Name: "current_se", Type: field.TypeFloat64, Default: 1},
		{Name: "next_item_id", Type: field.TypeString, Default: ""},
		{Name: "started_at", Type: field.TypeTime},
		{Name: "updated_at", Type: field.TypeTime},
		{Name: "completed_at", Type: field.TypeTime, Nullable: true},
		{Name: "result", Type: field.TypeJSON, Nullable: true},
	}
	// SessionsTable holds the schema information for the "sessions" table.
	SessionsTable = &schema.Table{
		Name:       sessionsTable,
		Columns:    SessionsColumns,
		PrimaryKey: []*schema.Column{SessionsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "session_user_id",
				Unique:  false,
				Columns: []*schema.Column{SessionsColumns[1]},
			},
		},
	}

	// ResponsesColumns holds the columns for the "responses" table.
	ResponsesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt64, Increment: true},
		{Name: "sequence", Type: field.TypeInt64, Unique: true},
		{Name: "session_id", Type: field.TypeString},
		{Name: "item_id", Type: field.TypeString},
		{Name: "selected_answer", Type: field.TypeString},
		{Name: "correct", Type: field.TypeBool},
		{Name: "theta", Type: field.TypeFloat64},
		{Name: "standard_error", Type: field.TypeFloat64},
		{Name: "response_time_ms", Type: field.TypeInt64, Default: 0},
		{Name: "stage", Type: field.TypeInt},
		{Name: "panel", Type: field.TypeString},
		{Name: "created_at", Type: field.TypeTime},
	}
	// ResponsesTable holds the schema information for the "responses" table.
	ResponsesTable = &schema.Table{
		Name:       responsesTable,
		Columns:    ResponsesColumns,
		PrimaryKey: []*schema.Column{ResponsesColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "responses_sessions_responses",
				Columns:    []*schema.Column{ResponsesColumns[2]},
				RefColumns: []*schema.Column{SessionsColumns[0]},
				OnDelete:   schema.Cascade,
			},
			{
				Symbol:     "responses_items_responses",
				Columns:    []*schema.Column{ResponsesColumns[3]},
				RefColumns: []*schema.Column{ItemsColumns[0]},
				OnDelete:   schema.NoAction,
			},
		},
		Indexes: []*schema.Index{
			{
				Name:    "response_session_id_item_id",
				Unique:  true,
				Columns: []*schema.Column{ResponsesColumns[2], ResponsesColumns[3]},
			},
		},
	}

	// LlmRequestEventsColumns holds the columns for the "llm_request_events" table.
	LlmRequestEventsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "sequence", Type: field.TypeInt64, Unique: true},
		{Name: "timestamp", Type: field.TypeTime},
		{Name: "provider", Type: field.TypeString},
		{Name: "model", Type: field.TypeString},
		{Name: "purpose", Type: field.TypeString},
		{Name: "input_tokens", Type: field.TypeInt, Default: 0},
		{Name: "output_tokens", Type: field.TypeInt, Default: 0},
		{Name: "latency_ms", Type: field.TypeInt64, Default: 0},
		{Name: "success", Type: field.TypeBool},
		{Name: "error_message", Type: field.TypeString, Size: textSize, Default: ""},
		{Name: "request_body", Type: field.TypeString, Size: textSize, Default: ""},
		{Name: "response_body", Type: field.TypeString, Size: textSize, Default: ""},
	}
	// LlmRequestEventsTable holds the schema information for the "llm_request_events" table.
	LlmRequestEventsTable = &schema.Table{
		Name:       llmEventsTable,
		Columns:    LlmRequestEventsColumns,
		PrimaryKey: []*schema.Column{LlmRequestEventsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "llmrequestevent_timestamp",
				Unique:  false,
				Columns: []*schema.Column{LlmRequestEventsColumns[2]},
			},
			{
				Name:    "llmrequestevent_purpose",
				Unique:  false,
				Columns: []*schema.Column{LlmRequestEventsColumns[5]},
			},
		},
	}

	// GlobalSequenceColumns holds the columns for the "global_sequence" table.
	GlobalSequenceColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt},
		{Name: "next_val", Type: field.TypeInt64, Default: 1},
	}
	// GlobalSequenceTable holds the single-row sequence counter.
	GlobalSequenceTable = &schema.Table{
		Name:       sequenceTable,
		Columns:    GlobalSequenceColumns,
		PrimaryKey: []*schema.Column{GlobalSequenceColumns[0]},
	}

	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		ItemsTable,
		SessionsTable,
		ResponsesTable,
		LlmRequestEventsTable,
		GlobalSequenceTable,
	}
)

func init() {
	ResponsesTable.ForeignKeys[0].RefTable = SessionsTable
	ResponsesTable.ForeignKeys[1].RefTable = ItemsTable
}
