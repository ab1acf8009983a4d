package entity

// Candidate 召回得到的候选元素，重排阶段补充分数
type Candidate struct {
	Element     *ElementNode `json:"element"`
	Text        string       `json:"text"`
	VectorScore float64      `json:"vector_score"`
	RerankScore *float64     `json:"rerank_score,omitempty"`
	FinalScore  *float64     `json:"final_score,omitempty"`
}

// NewCandidate 以召回结果创建候选
func NewCandidate(node *ElementNode, score float64) *Candidate {
	return &Candidate{
		Element:     node,
		Text:        node.Desc,
		VectorScore: score,
	}
}

// Fuse 写入重排分数并按权重计算融合分
func (c *Candidate) Fuse(rerankScore, rerankWeight float64) {
	final := (1-rerankWeight)*c.VectorScore + rerankWeight*rerankScore
	c.RerankScore = &rerankScore
	c.FinalScore = &final
}

// Score 返回融合分，未重排时退回向量分
func (c *Candidate) Score() float64 {
	if c.FinalScore != nil {
		return *c.FinalScore
	}
	return c.VectorScore
}
