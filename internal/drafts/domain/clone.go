package domain

// CloneValue deep-copies the map and slice shapes used inside sections.
// Scalars are returned as-is.
func CloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = CloneValue(val)
		}
		return out
	case Section:
		return t.Clone()
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = CloneValue(val)
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = CloneValue(val)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = val
		}
		return out
	default:
		return v
	}
}

func (s Section) Clone() Section {
	if s == nil {
		return nil
	}
	out := make(Section, len(s))
	for k, v := range s {
		out[k] = CloneValue(v)
	}
	return out
}

// Merge returns a copy of s with partial's keys shallow-merged on top.
func (s Section) Merge(partial map[string]any) Section {
	out := s.Clone()
	if out == nil {
		out = Section{}
	}
	for k, v := range partial {
		out[k] = CloneValue(v)
	}
	return out
}

func (bp BusinessPlan) Clone() BusinessPlan {
	if bp == nil {
		return nil
	}
	out := make(BusinessPlan, len(bp))
	for name, sec := range bp {
		out[name] = sec.Clone()
	}
	return out
}

func (fd FinancialData) Clone() FinancialData {
	if fd == nil {
		return nil
	}
	out := make(FinancialData, len(fd))
	for name, sec := range fd {
		out[name] = sec.Clone()
	}
	return out
}

// CloneVendors copies a vendor list. Vendor has only value fields.
func CloneVendors(vs []Vendor) []Vendor {
	if vs == nil {
		return nil
	}
	out := make([]Vendor, len(vs))
	copy(out, vs)
	return out
}

// Clone returns a deep copy of the draft.
func (d Draft) Clone() Draft {
	d.BusinessPlan = d.BusinessPlan.Clone()
	d.FinancialData = d.FinancialData.Clone()
	d.Vendors = CloneVendors(d.Vendors)
	return d
}

// CloneDrafts deep-copies a roster.
func CloneDrafts(ds []Draft) []Draft {
	if ds == nil {
		return nil
	}
	out := make([]Draft, len(ds))
	for i, d := range ds {
		out[i] = d.Clone()
	}
	return out
}
