package petrovisor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// ItemType names a kind of workspace item.
type ItemType string

// Named item types.
const (
	ItemUnit                      ItemType = "Unit"
	ItemUnitMeasurement           ItemType = "UnitMeasurement"
	ItemEntity                    ItemType = "Entity"
	ItemEntityType                ItemType = "EntityType"
	ItemSignal                    ItemType = "Signal"
	ItemConfigurationSettingValue ItemType = "ConfigurationSettingValue"
	ItemConfigurationSettings     ItemType = "ConfigurationSettings"
	ItemTag                       ItemType = "Tag"
	ItemProcessTemplate           ItemType = "ProcessTemplate"
	ItemMessageEntry              ItemType = "MessageEntry"
	ItemTicket                    ItemType = "Ticket"
	ItemUserSetting               ItemType = "UserSetting"
	ItemCustomWorkflowActivity    ItemType = "CustomWorkflowActivity"
	ItemWebWorkflowActivity       ItemType = "WebWorkflowActivity"
	ItemEventSubscription         ItemType = "EventSubscription"
	ItemWorkspacePackage          ItemType = "WorkspacePackage"
)

// PetroVisor item types. They carry item metadata and labels.
const (
	ItemHierarchy                ItemType = "Hierarchy"
	ItemScope                    ItemType = "Scope"
	ItemEntitySet                ItemType = "EntitySet"
	ItemContext                  ItemType = "Context"
	ItemTableCalculation         ItemType = "TableCalculation"
	ItemEventCalculation         ItemType = "EventCalculation"
	ItemCleansingCalculation     ItemType = "CleansingCalculation"
	ItemPlot                     ItemType = "Plot"
	ItemPSharpScript             ItemType = "PSharpScript"
	ItemCleansingScript          ItemType = "CleansingScript"
	ItemWorkflowSchedule         ItemType = "WorkflowSchedule"
	ItemRWorkflowActivity        ItemType = "RWorkflowActivity"
	ItemWorkflow                 ItemType = "Workflow"
	ItemFilterDefinition         ItemType = "FilterDefinition"
	ItemFilter                   ItemType = "Filter"
	ItemDCA                      ItemType = "DCA"
	ItemChartDefinition          ItemType = "ChartDefinition"
	ItemChart                    ItemType = "Chart"
	ItemVoronoiGrid              ItemType = "VoronoiGrid"
	ItemGeoDataGrid              ItemType = "GeoDataGrid"
	ItemPolygon                  ItemType = "Polygon"
	ItemPivotTableDefinition     ItemType = "PivotTableDefinition"
	ItemPivotTable               ItemType = "PivotTable"
	ItemDataIntegrationSet       ItemType = "DataIntegrationSet"
	ItemReferenceTableDefinition ItemType = "ReferenceTableDefinition"
	ItemReferenceTable           ItemType = "ReferenceTable"
	ItemPowerBIItem              ItemType = "PowerBIItem"
)

// Info item types. They list their infos under an Info route.
const (
	ItemMachineLearningModel   ItemType = "MachineLearningModel"
	ItemMLModel                ItemType = "MLModel"
	ItemDataGrid               ItemType = "DataGrid"
	ItemDataGridSet            ItemType = "DataGridSet"
	ItemDataConnection         ItemType = "DataConnection"
	ItemDataSource             ItemType = "DataSource"
	ItemScenario               ItemType = "Scenario"
	ItemDataIntegrationSession ItemType = "DataIntegrationSession"
)

var namedItemRoutes = map[ItemType]string{
	ItemUnit:                      "Units",
	ItemUnitMeasurement:           "UnitMeasurements",
	ItemEntity:                    "Entities",
	ItemEntityType:                "EntityTypes",
	ItemSignal:                    "Signals",
	ItemConfigurationSettingValue: "ConfigurationSettings",
	ItemConfigurationSettings:     "ConfigurationSettings",
	ItemTag:                       "Tags",
	ItemProcessTemplate:           "ProcessTemplates",
	ItemMessageEntry:              "MessageEntries",
	ItemTicket:                    "Tickets",
	ItemUserSetting:               "UserSettings",
	ItemCustomWorkflowActivity:    "CustomWorkflowActivities",
	ItemWebWorkflowActivity:       "WebWorkflowActivities",
	ItemEventSubscription:         "EventSubscriptions",
	ItemWorkspacePackage:          "WorkspacePackages",
}

var petroVisorItemRoutes = map[ItemType]string{
	ItemHierarchy:                "Hierarchies",
	ItemScope:                    "Scopes",
	ItemEntitySet:                "EntitySets",
	ItemContext:                  "Contexts",
	ItemTableCalculation:         "TableCalculations",
	ItemEventCalculation:         "EventCalculations",
	ItemCleansingCalculation:     "CleansingCalculations",
	ItemPlot:                     "Plots",
	ItemPSharpScript:             "PSharpScripts",
	ItemCleansingScript:          "CleansingScripts",
	ItemWorkflowSchedule:         "WorkflowSchedules",
	ItemRWorkflowActivity:        "RWorkflowActivities",
	ItemWorkflow:                 "Workflows",
	ItemFilterDefinition:         "Filters",
	ItemFilter:                   "Filters",
	ItemDCA:                      "DCA",
	ItemChartDefinition:          "Charts",
	ItemChart:                    "Charts",
	ItemVoronoiGrid:              "VoronoiGrids",
	ItemGeoDataGrid:              "GeoDataGrids",
	ItemPolygon:                  "Polygons",
	ItemPivotTableDefinition:     "PivotTables",
	ItemPivotTable:               "PivotTables",
	ItemDataIntegrationSet:       "DataIntegrationSets",
	ItemReferenceTableDefinition: "ReferenceTables",
	ItemReferenceTable:           "ReferenceTables",
	ItemPowerBIItem:              "PowerBIItems",
}

var infoItemRoutes = map[ItemType]string{
	ItemMachineLearningModel:   "MLModels",
	ItemMLModel:                "MLModels",
	ItemDataGrid:               "DataGrids",
	ItemDataGridSet:            "DataGridSets",
	ItemDataConnection:         "DataConnections",
	ItemDataSource:             "DataSources",
	ItemScenario:               "Scenarios",
	ItemDataIntegrationSession: "DataIntegrationSessions",
}

var itemAliases = map[string]ItemType{
	"reftable":        ItemReferenceTable,
	"reftables":       ItemReferenceTable,
	"ml":              ItemMLModel,
	"settings":        ItemConfigurationSettings,
	"workspacevalue":  ItemConfigurationSettings,
	"workspacevalues": ItemConfigurationSettings,
	"pivot":           ItemPivotTable,
	"psharp":          ItemPSharpScript,
}

// normalized name and plural route both resolve to the type
var itemLookup = func() map[string]ItemType {
	m := map[string]ItemType{}
	for _, routes := range []map[ItemType]string{namedItemRoutes, petroVisorItemRoutes, infoItemRoutes} {
		for t := range routes {
			m[NormalizeName(string(t))] = t
		}
	}
	for _, routes := range []map[ItemType]string{namedItemRoutes, petroVisorItemRoutes, infoItemRoutes} {
		for _, t := range sortedItemTypes(routes) {
			if _, taken := m[NormalizeName(routes[t])]; !taken {
				m[NormalizeName(routes[t])] = t
			}
		}
	}
	for a, t := range itemAliases {
		if _, taken := m[a]; !taken {
			m[a] = t
		}
	}
	return m
}()

func sortedItemTypes(routes map[ItemType]string) []ItemType {
	types := make([]ItemType, 0, len(routes))
	for t := range routes {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

// ItemTypes returns every known item type in alphabetical order.
func ItemTypes() []ItemType {
	var all []ItemType
	for _, routes := range []map[ItemType]string{namedItemRoutes, petroVisorItemRoutes, infoItemRoutes} {
		all = append(all, sortedItemTypes(routes)...)
	}
	slices.Sort(all)
	return all
}

// ParseItemType resolves an item type name, its route, or an alias such as
// "RefTable", ignoring case and punctuation.
func ParseItemType(s string) (ItemType, error) {
	if t, ok := itemLookup[NormalizeName(s)]; ok {
		return t, nil
	}
	known := make([]string, 0, len(itemLookup))
	for _, t := range ItemTypes() {
		known = append(known, string(t))
	}
	return "", &UnknownNameError{Kind: "item type", Name: s, Known: known}
}

// Route returns the web API route of the item type, or "" if it has none.
func (t ItemType) Route() string {
	if r, ok := namedItemRoutes[t]; ok {
		return r
	}
	if r, ok := petroVisorItemRoutes[t]; ok {
		return r
	}
	return infoItemRoutes[t]
}

// IsNamed reports whether t is a plain named item.
func (t ItemType) IsNamed() bool {
	_, ok := namedItemRoutes[t]
	return ok
}

// IsPetroVisorItem reports whether t carries item metadata and labels.
func (t ItemType) IsPetroVisorItem() bool {
	_, ok := petroVisorItemRoutes[t]
	return ok || t.IsInfo()
}

// IsInfo reports whether t lists its infos under an Info route.
func (t ItemType) IsInfo() bool {
	_, ok := infoItemRoutes[t]
	return ok
}

func (t ItemType) String() string { return string(t) }

// Item is a workspace item in its wire form.
type Item map[string]any

// Name returns the item's Name field, matched case-insensitively.
func (it Item) Name() string {
	if n, ok := it["Name"].(string); ok {
		return n
	}
	for k, v := range it {
		if strings.EqualFold(k, "name") {
			if n, ok := v.(string); ok {
				return n
			}
		}
	}
	return ""
}

// Field returns the value of a field, matched case-insensitively.
func (it Item) Field(name string) (any, bool) {
	if v, ok := it[name]; ok {
		return v, true
	}
	for k, v := range it {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}

// Decode converts the item into dst, typically a model such as *Scope.
func (it Item) Decode(dst any) error {
	b, err := json.Marshal(it)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}

// ItemTypeScope groups the operations on one item type.
type ItemTypeScope struct {
	c     *Client
	typ   ItemType
	route string
}

// Items returns the operations on items of type t. Unknown types fail on
// first use with an *UnknownNameError.
func (c *Client) Items(t ItemType) *ItemTypeScope {
	if parsed, err := ParseItemType(string(t)); err == nil {
		t = parsed
	}
	return &ItemTypeScope{c: c, typ: t, route: t.Route()}
}

// Type returns the item type of the scope.
func (s *ItemTypeScope) Type() ItemType { return s.typ }

func (s *ItemTypeScope) check(op string, petroVisorOnly bool) error {
	if s.route == "" || (petroVisorOnly && !s.typ.IsPetroVisorItem()) {
		kind := "item type"
		var types []ItemType
		for _, t := range ItemTypes() {
			if !petroVisorOnly || t.IsPetroVisorItem() {
				types = append(types, t)
			}
		}
		if petroVisorOnly {
			kind = "PetroVisor item type"
		}
		known := make([]string, len(types))
		for i, t := range types {
			known[i] = string(t)
		}
		return fmt.Errorf("%s: %w", op, &UnknownNameError{Kind: kind, Name: string(s.typ), Known: known})
	}
	return nil
}

func (s *ItemTypeScope) op(name string) string { return strings.ToLower(string(s.typ)) + "." + name }

// path returns route/name. The dimensionless unit " " is addressed as "_".
func (s *ItemTypeScope) path(name string) string {
	if s.route == "Units" && name == " " {
		name = "_"
	}
	return s.route + "/" + name
}

// Get returns the named item.
func (s *ItemTypeScope) Get(ctx context.Context, name string) (Item, error) {
	var it Item
	if err := s.GetInto(ctx, name, &it); err != nil {
		return nil, err
	}
	return it, nil
}

// GetInto decodes the named item into dst.
func (s *ItemTypeScope) GetInto(ctx context.Context, name string, dst any) error {
	if err := s.check(s.op("get"), false); err != nil {
		return err
	}
	return s.c.get(ctx, s.op("get"), s.path(name), nil, dst)
}

// Exists reports whether an item of that name is listed.
func (s *ItemTypeScope) Exists(ctx context.Context, name string) (bool, error) {
	names, err := s.names(ctx, ErrorsRaise)
	if err != nil {
		return false, err
	}
	return slices.Contains(names, name), nil
}

// Add creates or replaces an item. item is a model, an Item, or any value
// whose JSON form carries a Name.
func (s *ItemTypeScope) Add(ctx context.Context, item any) error {
	if err := s.check(s.op("add"), false); err != nil {
		return err
	}
	name, err := nameOf(item)
	if err != nil {
		return fmt.Errorf("%s: %w", s.op("add"), err)
	}
	return s.c.put(ctx, s.op("add"), s.path(name), nil, item, nil)
}

// UpdateMetadata replaces the metadata of a PetroVisor item.
func (s *ItemTypeScope) UpdateMetadata(ctx context.Context, item any) error {
	if err := s.check(s.op("metadata"), true); err != nil {
		return err
	}
	name, err := nameOf(item)
	if err != nil {
		return fmt.Errorf("%s: %w", s.op("metadata"), err)
	}
	return s.c.put(ctx, s.op("metadata"), s.path(name)+"/Metadata", nil, item, nil)
}

// Delete removes the named item.
func (s *ItemTypeScope) Delete(ctx context.Context, name string) error {
	if err := s.check(s.op("delete"), false); err != nil {
		return err
	}
	return s.c.delete(ctx, s.op("delete"), s.path(name), nil, nil)
}

// All returns every item of the type.
func (s *ItemTypeScope) All(ctx context.Context) ([]Item, error) {
	if err := s.check(s.op("all"), false); err != nil {
		return nil, err
	}
	var items []Item
	if err := s.c.get(ctx, s.op("all"), s.route+"/All", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Paged returns one page of PetroVisor items. Pages start at 1.
func (s *ItemTypeScope) Paged(ctx context.Context, page, pageSize int) ([]Item, error) {
	if err := s.check(s.op("paged"), true); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	q := url.Values{"Page": {strconv.Itoa(page)}, "PageSize": {strconv.Itoa(pageSize)}}
	var items []Item
	if err := s.c.get(ctx, s.op("paged"), s.route+"/Paged", q, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// ListAll pages through every PetroVisor item, stopping at the first
// short page.
func (s *ItemTypeScope) ListAll(ctx context.Context, pageSize int) ([]Item, error) {
	if pageSize < 1 {
		pageSize = 100
	}
	var all []Item
	for page := 1; ; page++ {
		items, err := s.Paged(ctx, page, pageSize)
		if err != nil {
			return all, err
		}
		all = append(all, items...)
		if len(items) < pageSize {
			return all, nil
		}
	}
}

// Names returns the names of all items of the type.
func (s *ItemTypeScope) Names(ctx context.Context) ([]string, error) {
	return s.names(ctx, ErrorsDefault)
}

func (s *ItemTypeScope) names(ctx context.Context, policy ErrorPolicy) ([]string, error) {
	if err := s.check(s.op("names"), false); err != nil {
		return nil, err
	}
	var names []string
	call := Call{Path: s.route, Operation: s.op("names"), Errors: policy}
	if err := s.c.doJSON(ctx, call, &names); err != nil {
		return nil, err
	}
	return names, nil
}

// Labels returns the labels used by PetroVisor items of the type.
func (s *ItemTypeScope) Labels(ctx context.Context) ([]string, error) {
	if err := s.check(s.op("labels"), true); err != nil {
		return nil, err
	}
	var labels []string
	if err := s.c.get(ctx, s.op("labels"), s.route+"/Labels", nil, &labels); err != nil {
		return nil, err
	}
	return labels, nil
}

// Infos returns item infos: the Info route for info items and the
// PetroVisorItems route otherwise.
func (s *ItemTypeScope) Infos(ctx context.Context) ([]Item, error) {
	if err := s.check(s.op("infos"), true); err != nil {
		return nil, err
	}
	p := s.route + "/PetroVisorItems"
	if s.typ.IsInfo() {
		p = s.route + "/Info"
	}
	var infos []Item
	if err := s.c.get(ctx, s.op("infos"), p, nil, &infos); err != nil {
		return nil, err
	}
	return infos, nil
}

// WaitExists polls until the named item is listed.
func (s *ItemTypeScope) WaitExists(ctx context.Context, name string) error {
	return s.c.poll(ctx, s.op("wait"), func(ctx context.Context) (bool, error) {
		return s.Exists(ctx, name)
	})
}

// WaitGone polls until the named item is no longer listed.
func (s *ItemTypeScope) WaitGone(ctx context.Context, name string) error {
	return s.c.poll(ctx, s.op("wait"), func(ctx context.Context) (bool, error) {
		ok, err := s.Exists(ctx, name)
		return !ok, err
	})
}

func nameOf(item any) (string, error) {
	if n := itemName(item); n != "" {
		return n, nil
	}
	b, err := json.Marshal(item)
	if err == nil {
		var it Item
		if json.Unmarshal(b, &it) == nil && it.Name() != "" {
			return it.Name(), nil
		}
	}
	return "", fmt.Errorf("item has no name")
}
