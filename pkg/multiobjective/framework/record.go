package framework

import (
	"bytes"
	"fmt"
	"math"
	"strconv"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Float is a float64 whose JSON form keeps non-finite values, written as
// the strings "NaN", "Infinity" and "-Infinity".
type Float float64

func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	switch {
	case math.IsNaN(v):
		return []byte(`"NaN"`), nil
	case math.IsInf(v, 1):
		return []byte(`"Infinity"`), nil
	case math.IsInf(v, -1):
		return []byte(`"-Infinity"`), nil
	}
	return strconv.AppendFloat(nil, v, 'g', -1, 64), nil
}

func (f *Float) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		switch s {
		case "NaN":
			*f = Float(math.NaN())
		case "Infinity", "inf", "+Infinity":
			*f = Float(math.Inf(1))
		case "-Infinity", "-inf":
			*f = Float(math.Inf(-1))
		default:
			return fmt.Errorf("invalid float %q", s)
		}
		return nil
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("invalid float %s: %w", b, err)
	}
	*f = Float(v)
	return nil
}

type variableValueJSON struct {
	Type   VariableType `json:"type"`
	Choice *int         `json:"choice,omitempty"`
	Real   *Float       `json:"real,omitempty"`
}

func (v VariableValue) MarshalJSON() ([]byte, error) {
	out := variableValueJSON{Type: v.Type}
	switch v.Type {
	case ChoiceVariableType:
		c := v.Choice
		out.Choice = &c
	case RealVariableType:
		r := Float(v.Real)
		out.Real = &r
	default:
		return nil, fmt.Errorf("cannot marshal variable value of type %q", v.Type)
	}
	return json.Marshal(out)
}

func (v *VariableValue) UnmarshalJSON(b []byte) error {
	var in variableValueJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	switch in.Type {
	case ChoiceVariableType:
		if in.Choice == nil {
			return fmt.Errorf("choice variable value has no choice")
		}
		*v = Choice(*in.Choice)
	case RealVariableType:
		if in.Real == nil {
			return fmt.Errorf("real variable value has no value")
		}
		*v = Real(float64(*in.Real))
	default:
		return fmt.Errorf("unknown variable type %q", in.Type)
	}
	return nil
}

// ProblemRecord is the serialisable description of a Problem. The
// evaluator is not part of it.
type ProblemRecord struct {
	Name        string             `json:"name"`
	Objectives  []Objective        `json:"objectives"`
	Variables   []VariableRecord   `json:"variables"`
	Constraints []ConstraintRecord `json:"constraints,omitempty"`
}

type VariableRecord struct {
	Name    string       `json:"name"`
	Type    VariableType `json:"type"`
	Choices []int        `json:"choices,omitempty"`
	Min     *Float       `json:"min,omitempty"`
	Max     *Float       `json:"max,omitempty"`
}

type ConstraintRecord struct {
	Name     string             `json:"name"`
	Kind     ConstraintKind     `json:"kind"`
	Operator RelationalOperator `json:"operator,omitempty"`
	Target   *uint64            `json:"target,omitempty"`
	Penalty  *uint64            `json:"penalty,omitempty"`
	Services []string           `json:"services,omitempty"`
	Bounds   map[int]Resources  `json:"bounds,omitempty"`
}

// Record describes the problem for snapshots.
func (p *Problem) Record() ProblemRecord {
	rec := ProblemRecord{
		Name:       p.name,
		Objectives: p.Objectives(),
		Variables:  make([]VariableRecord, len(p.variables)),
	}
	for i, v := range p.variables {
		vr := VariableRecord{Name: v.Name(), Type: v.Type()}
		switch tv := v.(type) {
		case *ChoiceVariable:
			vr.Choices = tv.Choices()
		case *RealVariable:
			lo, hi := tv.Bounds()
			flo, fhi := Float(lo), Float(hi)
			vr.Min, vr.Max = &flo, &fhi
		}
		rec.Variables[i] = vr
	}
	for _, c := range p.constraints {
		cr := ConstraintRecord{Name: c.Name(), Kind: c.Kind()}
		switch tc := c.(type) {
		case *ScalarConstraint:
			target, penalty := tc.Target(), tc.Penalty()
			cr.Operator, cr.Target, cr.Penalty = tc.Operator(), &target, &penalty
		case *GroupConstraint:
			cr.Services = tc.Services()
		case *CapacityConstraint:
			cr.Bounds = tc.Bounds()
		}
		rec.Constraints = append(rec.Constraints, cr)
	}
	return rec
}

// ConstraintValueRecord is the serialisable form of a ConstraintValue.
type ConstraintValueRecord struct {
	Kind   ConstraintKind    `json:"kind"`
	Scalar *uint64           `json:"scalar,omitempty"`
	Group  []int             `json:"group,omitempty"`
	Usage  map[int]Resources `json:"usage,omitempty"`
}

func constraintValueRecord(v ConstraintValue) *ConstraintValueRecord {
	switch cv := v.(type) {
	case ScalarValue:
		s := uint64(cv)
		return &ConstraintValueRecord{Kind: ScalarConstraintKind, Scalar: &s}
	case GroupValue:
		return &ConstraintValueRecord{Kind: GroupConstraintKind, Group: append([]int(nil), cv...)}
	case ResourceUsage:
		u := make(map[int]Resources, len(cv))
		for k, r := range cv {
			u[k] = r
		}
		return &ConstraintValueRecord{Kind: CapacityConstraintKind, Usage: u}
	}
	return nil
}

// Value converts the record back to a ConstraintValue.
func (r *ConstraintValueRecord) Value() (ConstraintValue, error) {
	switch r.Kind {
	case ScalarConstraintKind:
		if r.Scalar == nil {
			return nil, fmt.Errorf("scalar constraint value is empty")
		}
		return ScalarValue(*r.Scalar), nil
	case GroupConstraintKind:
		return GroupValue(append([]int(nil), r.Group...)), nil
	case CapacityConstraintKind:
		u := make(ResourceUsage, len(r.Usage))
		for k, res := range r.Usage {
			u[k] = res
		}
		return u, nil
	}
	return nil, fmt.Errorf("unknown constraint kind %q", r.Kind)
}

// AuxRecord is the serialisable form of AuxData.
type AuxRecord struct {
	Rank             *int   `json:"rank,omitempty"`
	CrowdingDistance *Float `json:"crowding_distance,omitempty"`
}

// IndividualRecord is the serialisable form of an Individual. Objective
// values are in the user's convention.
type IndividualRecord struct {
	Variables           map[string]VariableValue          `json:"variables"`
	Objectives          map[string]Float                  `json:"objectives"`
	Constraints         map[string]*ConstraintValueRecord `json:"constraints,omitempty"`
	ConstraintViolation uint64                            `json:"constraint_violation"`
	IsFeasible          bool                              `json:"is_feasible"`
	Evaluated           bool                              `json:"evaluated"`
	Data                AuxRecord                         `json:"data"`
}

// Record serialises the individual.
func (ind *Individual) Record() IndividualRecord {
	rec := IndividualRecord{
		Variables:           make(map[string]VariableValue, len(ind.variables)),
		Objectives:          make(map[string]Float, len(ind.objectives)),
		ConstraintViolation: ind.ConstraintViolation(),
		IsFeasible:          ind.IsFeasible(),
		Evaluated:           ind.evaluated,
	}
	for i, v := range ind.problem.variables {
		rec.Variables[v.Name()] = ind.variables[i]
	}
	for i, o := range ind.problem.objectives {
		rec.Objectives[o.Name] = Float(ind.objectiveAt(i))
	}
	for i, c := range ind.problem.constraints {
		if cv := constraintValueRecord(ind.constraints[i]); cv != nil {
			if rec.Constraints == nil {
				rec.Constraints = make(map[string]*ConstraintValueRecord, len(ind.constraints))
			}
			rec.Constraints[c.Name()] = cv
		}
	}
	if r, ok := ind.aux.Rank(); ok {
		rec.Data.Rank = &r
	}
	if d, ok := ind.aux.CrowdingDistance(); ok {
		fd := Float(d)
		rec.Data.CrowdingDistance = &fd
	}
	return rec
}

// IndividualFromRecord rebuilds an individual of problem from its record.
func IndividualFromRecord(problem *Problem, rec IndividualRecord) (*Individual, error) {
	if len(rec.Variables) != problem.NumberOfVariables() {
		return nil, fmt.Errorf("record has %d variables, problem %q has %d: %w", len(rec.Variables), problem.name, problem.NumberOfVariables(), ErrTypeMismatch)
	}
	ind := newBlankIndividual(problem)
	for name, v := range rec.Variables {
		i, err := problem.VariableIndex(name)
		if err != nil {
			return nil, err
		}
		if err := problem.variables[i].Validate(v); err != nil {
			return nil, err
		}
		ind.variables[i] = v
	}
	for name, v := range rec.Objectives {
		if math.IsNaN(float64(v)) {
			if rec.Evaluated {
				return nil, fmt.Errorf("evaluated record, objective %q: %w", name, ErrNaNObjective)
			}
			if _, err := problem.ObjectiveIndex(name); err != nil {
				return nil, err
			}
			continue
		}
		if err := ind.SetObjectiveValue(name, float64(v)); err != nil {
			return nil, err
		}
	}
	for name, cr := range rec.Constraints {
		if cr == nil {
			continue
		}
		v, err := cr.Value()
		if err != nil {
			return nil, fmt.Errorf("constraint %q: %w", name, err)
		}
		if err := ind.SetConstraintValue(name, v); err != nil {
			return nil, err
		}
	}
	if rec.Evaluated {
		for i, o := range problem.objectives {
			if math.IsNaN(ind.objectives[i]) {
				return nil, &NameError{Kind: "objective", Name: o.Name, Err: ErrMissingResult}
			}
		}
		for i, c := range problem.constraints {
			if ind.constraints[i] == nil {
				return nil, &NameError{Kind: "constraint", Name: c.Name(), Err: ErrMissingResult}
			}
		}
		ind.evaluated = true
	}
	if rec.Data.Rank != nil {
		ind.aux.SetRank(*rec.Data.Rank)
	}
	if rec.Data.CrowdingDistance != nil {
		ind.aux.SetCrowdingDistance(float64(*rec.Data.CrowdingDistance))
	}
	return ind, nil
}

// Records serialises every individual of the population.
func (p *Population) Records() []IndividualRecord {
	out := make([]IndividualRecord, len(p.individuals))
	for i, ind := range p.individuals {
		out[i] = ind.Record()
	}
	return out
}

// PopulationFromRecords rebuilds a population of problem.
func PopulationFromRecords(problem *Problem, records []IndividualRecord) (*Population, error) {
	p := &Population{individuals: make([]*Individual, len(records))}
	for i, rec := range records {
		ind, err := IndividualFromRecord(problem, rec)
		if err != nil {
			return nil, fmt.Errorf("individual #%d: %w", i, err)
		}
		p.individuals[i] = ind
	}
	return p, nil
}
