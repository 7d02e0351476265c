package graph

// Customer 360 vocabulary: vertex labels, edge types and property keys of the
// customer-clustering dataset.
const (
	VertexCluster  = "cluster"
	VertexCustomer = "customer"
	VertexContract = "contract"
	VertexVehicule = "vehicule"

	EdgeContainsCustomer = "containsCustomer"
)

const (
	PropClusterID          = "cluster_id"
	PropClusterSize        = "cluster_size"
	PropConfidenceLevel    = "confidence_level"
	PropGoldenCompanyName  = "golden_company_name"
	PropGoldenCompanyRegNo = "golden_company_reg_no"
	PropGoldenCustomerName = "golden_customer_name"
	PropGoldenCustomerType = "golden_customer_type"
	PropGoldenDisplayName  = "golden_display_name"
	PropGoldenDOB          = "golden_dob"
	PropGoldenFirstname    = "golden_firstname"
	PropGoldenSurname      = "golden_surname"

	PropCdSiExt       = "cd_si_ext"
	PropSrcCustomerID = "src_customer_id"
	PropCustomerType  = "customer_type"
	PropFirstname     = "firstname"
	PropSurname       = "surname"
	PropCompanyRegNo  = "company_reg_no"
	PropCompanyName   = "company_name"
	PropDOB           = "dob"

	PropAgreementID = "agreement_id"
	PropSysAPL      = "sys_apl"
	PropVinNo       = "vin_no"
)
