// Package predict serves churn estimates over a frozen session feature
// table.
//
// The feature table's rows form the nodes of a session graph; a query
// attaches one synthetic node, built from the column means with a hashed
// text embedding substituted in, links it to one existing node, and scores
// it with a frozen linear graph model loaded from a JSON artifact. The
// HTTP surface is a single POST /api/predict endpoint.
package predict
