package schemas

// Schema names accepted by Validate.
const (
	SitewideAudit    = "sitewide_audit"
	PageAnalysis     = "page_analysis"
	ActionPlan       = "action_plan"
	ExecutiveSummary = "executive_summary"
)

var registry = map[string]string{
	SitewideAudit:    sitewideAuditSchema,
	PageAnalysis:     pageAnalysisSchema,
	ActionPlan:       actionPlanSchema,
	ExecutiveSummary: executiveSummarySchema,
}

const findingDefs = `
	"$defs": {
		"finding": {
			"type": "object",
			"required": ["title", "description", "severity", "recommendation"],
			"properties": {
				"title": {"type": "string", "minLength": 1},
				"description": {"type": "string"},
				"severity": {"type": "string", "enum": ["critical", "high", "medium", "low"]},
				"recommendation": {"type": "string"}
			}
		}
	}`

const sitewideAuditSchema = `{
	"type": "object",
	"required": ["summary", "health_score", "technical_findings"],
	"properties": {
		"summary": {"type": "string", "minLength": 1},
		"health_score": {"type": "integer", "minimum": 0, "maximum": 100},
		"technical_findings": {"type": "array", "items": {"$ref": "#/$defs/finding"}},
		"competitor_gaps": {"type": "array", "items": {"$ref": "#/$defs/finding"}}
	},` + findingDefs + `
}`

const pageAnalysisSchema = `{
	"type": "object",
	"required": ["pages"],
	"properties": {
		"pages": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["url", "score", "issues"],
				"properties": {
					"url": {"type": "string", "minLength": 1},
					"title": {"type": "string"},
					"meta_description": {"type": "string"},
					"score": {"type": "integer", "minimum": 0, "maximum": 100},
					"issues": {"type": "array", "items": {"$ref": "#/$defs/finding"}}
				}
			}
		},
		"common_issues": {"type": "array", "items": {"type": "string"}}
	},` + findingDefs + `
}`

const actionPlanSchema = `{
	"type": "object",
	"required": ["items"],
	"properties": {
		"items": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["title", "description", "priority", "effort", "impact"],
				"properties": {
					"title": {"type": "string", "minLength": 1},
					"description": {"type": "string"},
					"priority": {"type": "string", "enum": ["p0", "p1", "p2"]},
					"effort": {"type": "string", "enum": ["low", "medium", "high"]},
					"impact": {"type": "string", "enum": ["low", "medium", "high"]}
				}
			}
		},
		"quick_wins": {"type": "array", "items": {"type": "string"}}
	}
}`

const executiveSummarySchema = `{
	"type": "object",
	"required": ["headline", "overall_score", "key_wins", "key_risks", "narrative"],
	"properties": {
		"headline": {"type": "string", "minLength": 1},
		"overall_score": {"type": "integer", "minimum": 0, "maximum": 100},
		"key_wins": {"type": "array", "items": {"type": "string"}},
		"key_risks": {"type": "array", "items": {"type": "string"}},
		"narrative": {"type": "string"}
	}
}`
