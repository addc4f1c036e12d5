package scanhint

// ScoreColumn is the relevance-score pseudo-column. A sort key whose text
// mentions it is a sort on score.
const ScoreColumn = "zdb_score"
