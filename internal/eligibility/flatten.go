package eligibility

// SplitOthers replaces the "Others" catch-all service with one service per
// procedure code found in it, appended after the remaining services in
// first-seen order. Records without a procedure code go to "Plan General".
// A list without an "Others" service is returned as is. The input is never
// modified.
func SplitOthers(services []Service) []Service {
	others := -1
	for i := range services {
		if services[i].Name == OthersServiceName {
			others = i
			break
		}
	}
	if others == -1 {
		return services
	}

	groups := newOrderedGroups[Record]()
	out := make([]Service, 0, len(services))
	for _, svc := range services {
		if svc.Name != OthersServiceName {
			out = append(out, svc)
			continue
		}
		for _, r := range svc.Records {
			groups.add(procedureService(r), r)
		}
	}
	groups.each(func(name string, records []Record) {
		out = append(out, Service{Name: name, Records: records})
	})
	return out
}

// procedureService names the service a record from "Others" moves to. A
// record tagged with the literal "Others" procedure would recreate the
// bucket, so it joins "Plan General" instead.
func procedureService(r Record) string {
	if r.Procedure == "" || r.Procedure == OthersServiceName {
		return PlanGeneralService
	}
	return r.Procedure
}

// Flatten returns a copy of resp in canonical stored form: no "Others"
// service. A response without a service list comes back unchanged.
func Flatten(resp *Response) *Response {
	if resp == nil {
		return nil
	}
	out := *resp
	if resp.Services == nil {
		return &out
	}
	out.Services = SplitOthers(resp.Services)
	return &out
}
