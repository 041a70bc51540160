package models

// Roles and stances are closed sets. Dispatch switches on these types
// exhaustively instead of branching on free-form strings.

type AnalystRole int

const (
	AnalystMarket AnalystRole = iota
	AnalystSocial
	AnalystNews
	AnalystFundamentals
)

// AllAnalystRoles lists every analyst in declaration order. The analyst
// fan-out indexes report slots by this order.
var AllAnalystRoles = [...]AnalystRole{
	AnalystMarket,
	AnalystSocial,
	AnalystNews,
	AnalystFundamentals,
}

func (r AnalystRole) String() string {
	switch r {
	case AnalystMarket:
		return "market_analyst"
	case AnalystSocial:
		return "social_media_analyst"
	case AnalystNews:
		return "news_analyst"
	case AnalystFundamentals:
		return "fundamentals_analyst"
	default:
		return "unknown_analyst"
	}
}

func (r AnalystRole) DisplayName() string {
	switch r {
	case AnalystMarket:
		return "Market Analyst"
	case AnalystSocial:
		return "Social Analyst"
	case AnalystNews:
		return "News Analyst"
	case AnalystFundamentals:
		return "Fundamentals Analyst"
	default:
		return "Unknown Analyst"
	}
}

type ResearchStance int

const (
	StanceBull ResearchStance = iota
	StanceBear
)

func (s ResearchStance) String() string {
	switch s {
	case StanceBull:
		return "bull_researcher"
	case StanceBear:
		return "bear_researcher"
	default:
		return "unknown_researcher"
	}
}

func (s ResearchStance) DisplayName() string {
	if s == StanceBull {
		return "Bull Researcher"
	}
	return "Bear Researcher"
}

type RiskStance int

const (
	RiskAggressive RiskStance = iota
	RiskConservative
	RiskNeutral
)

// AllRiskStances lists the fixed speaking order within a risk round.
var AllRiskStances = [...]RiskStance{
	RiskAggressive,
	RiskConservative,
	RiskNeutral,
}

func (s RiskStance) String() string {
	switch s {
	case RiskAggressive:
		return "risky_analyst"
	case RiskConservative:
		return "safe_analyst"
	case RiskNeutral:
		return "neutral_analyst"
	default:
		return "unknown_risk_analyst"
	}
}

func (s RiskStance) DisplayName() string {
	switch s {
	case RiskAggressive:
		return "Risky Analyst"
	case RiskConservative:
		return "Safe Analyst"
	case RiskNeutral:
		return "Neutral Analyst"
	default:
		return "Unknown Risk Analyst"
	}
}

// Stage identifies the pipeline stage an entity or failure belongs to.
type Stage int

const (
	StageAnalysts Stage = iota
	StageResearchDebate
	StageRiskDebate
	StageSynthesis
)

func (s Stage) String() string {
	switch s {
	case StageAnalysts:
		return "analysts"
	case StageResearchDebate:
		return "research_debate"
	case StageRiskDebate:
		return "risk_debate"
	case StageSynthesis:
		return "synthesis"
	default:
		return "unknown_stage"
	}
}
