package pardot

import "net/http"

func get(verb string, fields ...string) Operation {
	return Operation{Method: http.MethodGet, Verb: verb, Fields: fields}
}

func post(verb string, fields ...string) Operation {
	return Operation{Method: http.MethodPost, Verb: verb, Fields: fields}
}

func patch(verb string, fields ...string) Operation {
	return Operation{Method: http.MethodPatch, Verb: verb, Fields: fields}
}

var queryOp = get("query")

type objectSpec struct {
	name       string
	collection string
	ops        []Operation
}

// objectTable lists every supported Pardot object with its operations.
var objectTable = []objectSpec{
	{name: "account", collection: "account", ops: []Operation{
		post("read", "id"),
	}},
	{name: "campaign", collection: "campaign", ops: []Operation{
		queryOp, post("read", "id"), post("update", "id"), post("create"),
	}},
	{name: "customField", collection: "customField", ops: []Operation{
		queryOp, post("create"), post("read", "id"), post("update", "id"), post("delete", "id"),
	}},
	{name: "customRedirect", collection: "customRedirect", ops: []Operation{
		queryOp, post("read", "id"),
	}},
	{name: "dynamicContent", collection: "dynamicContent", ops: []Operation{
		queryOp, post("read", "id"),
	}},
	{name: "email", collection: "email", ops: []Operation{
		post("read", "id"),
		post("stats", "id"),
		post("send", "prospect_email"),
		post("send", "prospect_id"),
		post("send"),
	}},
	{name: "emailClick", collection: "emailClick", ops: []Operation{
		queryOp,
	}},
	{name: "emailTemplate", collection: "emailTemplate", ops: []Operation{
		post("read", "id"), post("listOneToOne"),
	}},
	{name: "form", collection: "form", ops: []Operation{
		queryOp, post("read", "id"),
	}},
	{name: "import", collection: "import", ops: []Operation{
		post("create"),
		post("batch", "id"),
		patch("update", "id"),
		get("read", "id"),
		queryOp,
		get("downloadErrors", "id"),
	}},
	{name: "lifecycleHistory", collection: "lifecycleHistory", ops: []Operation{
		queryOp, post("read", "id"),
	}},
	{name: "lifecycleStage", collection: "lifecycleStage", ops: []Operation{
		queryOp,
	}},
	{name: "list", collection: "list", ops: []Operation{
		queryOp, post("read", "id"), post("update", "id"), post("create"), post("delete", "id"),
	}},
	{name: "listMembership", collection: "list_membership", ops: []Operation{
		queryOp,
		post("create", "list_id", "prospect_id"),
		post("read", "list_id", "prospect_id"),
		post("read", "id"),
		post("update", "list_id", "prospect_id"),
		post("update", "id"),
		post("delete", "list_id", "prospect_id"),
		post("delete", "id"),
	}},
	{name: "opportunity", collection: "opportunity", ops: []Operation{
		queryOp,
		post("create", "prospect_email"),
		post("create", "prospect_id"),
		post("read", "id"),
		post("update", "id"),
		post("delete", "id"),
		post("undelete", "id"),
	}},
	{name: "prospect", collection: "prospect", ops: []Operation{
		queryOp,
		post("assign", "fid"), post("assign", "id"),
		post("unassign", "fid"), post("unassign", "id"),
		post("create", "email"), post("batchCreate"),
		post("read", "email"), post("read", "id"), post("read", "fid"),
		post("update", "fid"), post("update", "id"), post("batchUpdate"),
		post("upsert", "email"), post("upsert", "id"), post("upsert", "fid"), post("batchUpsert"),
		post("delete", "fid"), post("delete", "id"),
	}},
	{name: "prospectAccount", collection: "prospectAccount", ops: []Operation{
		queryOp, post("create"), get("describe"), post("read", "id"), post("update", "id"), post("assign", "id"),
	}},
	{name: "tag", collection: "tag", ops: []Operation{
		queryOp, post("read", "id"),
	}},
	{name: "tagObject", collection: "tagObject", ops: []Operation{
		queryOp, post("read", "id"),
	}},
	{name: "user", collection: "user", ops: []Operation{
		queryOp, post("read", "id"), post("read", "email"),
	}},
	{name: "visitor", collection: "visitor", ops: []Operation{
		queryOp, post("assign", "id"), post("read", "id"),
	}},
	{name: "visitorActivity", collection: "visitor_activity", ops: []Operation{
		queryOp, post("read", "id"),
	}},
	{name: "visit", collection: "visit", ops: []Operation{
		queryOp, post("read", "id"),
	}},
}
